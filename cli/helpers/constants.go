package helpers

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
	OutputFormatTUI   OutputFormat = "tui"
	OutputFormatAuto  OutputFormat = "auto"
)

const (
	// DateFormat is used for Created/Updated cells.
	DateFormat = "2006-01-02"
	// DateTimeFormat is used in detail output.
	DateTimeFormat = "2006-01-02 15:04"
)
