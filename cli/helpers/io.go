package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/compozy/flowctl/cli/tui/styles"
	"golang.org/x/term"
)

// OutputWriter handles different output formats
type OutputWriter struct {
	writer io.Writer
	format OutputFormat
	color  bool
	width  int
}

func NewOutputWriter(writer io.Writer, format OutputFormat, color bool) *OutputWriter {
	if writer == nil {
		writer = os.Stdout
	}
	return &OutputWriter{
		writer: writer,
		format: format,
		color:  color,
		width:  terminalWidth(writer),
	}
}

// terminalWidth reports the column count when writer is a terminal, 0 otherwise.
func terminalWidth(writer io.Writer) int {
	f, ok := writer.(*os.File)
	if !ok {
		return 0
	}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		return width
	}
	return 0
}

func (ow *OutputWriter) Format() OutputFormat {
	return ow.format
}

// WriteData writes data as indented JSON.
func (ow *OutputWriter) WriteData(data any) error {
	encoder := json.NewEncoder(ow.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// WriteTable renders headers and rows as a bordered text table. An empty
// row set prints emptyMessage instead.
func (ow *OutputWriter) WriteTable(headers []string, rows [][]string, emptyMessage string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(ow.writer, emptyMessage)
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	if ow.color {
		t = t.BorderStyle(lipgloss.NewStyle().Foreground(styles.Border)).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return styles.TitleStyle.Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
	} else {
		t = t.StyleFunc(func(int, int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}
	rendered := t.String()
	if ow.width > 0 && lipgloss.Width(rendered) > ow.width {
		rendered = t.Width(ow.width).String()
	}
	_, err := fmt.Fprintln(ow.writer, rendered)
	return err
}

// WriteLine prints a plain line.
func (ow *OutputWriter) WriteLine(format string, args ...any) error {
	_, err := fmt.Fprintf(ow.writer, format+"\n", args...)
	return err
}

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CopyToClipboard writes text to the system clipboard. Headless systems
// without a clipboard provider return an error the caller may ignore.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not available on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
