package models

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode represents the output mode for CLI commands
type Mode string

const (
	// ModeTUI represents interactive TUI mode
	ModeTUI Mode = "tui"
	// ModeJSON represents non-interactive JSON output mode
	ModeJSON Mode = "json"
)

// BaseModel provides the state every flowctl screen shares
type BaseModel struct {
	ctx      context.Context
	mode     Mode
	width    int
	height   int
	ready    bool
	quitting bool
	err      error
}

// NewBaseModel creates the shared state for a screen
func NewBaseModel(ctx context.Context, mode Mode) BaseModel {
	return BaseModel{
		ctx:  ctx,
		mode: mode,
	}
}

// Context returns the command context the screen runs under
func (m BaseModel) Context() context.Context {
	return m.ctx
}

// Mode returns the output mode
func (m BaseModel) Mode() Mode {
	return m.mode
}

// Size returns the terminal size
func (m BaseModel) Size() (width, height int) {
	return m.width, m.height
}

// IsReady reports whether the first window size arrived
func (m BaseModel) IsReady() bool {
	return m.ready
}

// IsQuitting reports whether a quit key was pressed
func (m BaseModel) IsQuitting() bool {
	return m.quitting
}

// Error returns the last error recorded by the screen
func (m BaseModel) Error() error {
	return m.err
}

// SetSize records the terminal size and marks the model ready
func (m *BaseModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
}

// SetError records an error for the screen to render
func (m *BaseModel) SetError(err error) {
	m.err = err
}

// Quit marks the model as quitting
func (m *BaseModel) Quit() {
	m.quitting = true
}

// Update handles window sizing and the global quit keys. Screens that own
// a text input must intercept "q" before delegating here.
func (m *BaseModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.Quit()
			return tea.Quit
		}
	}
	return nil
}

// ListResponse is the JSON envelope printed by list commands.
type ListResponse struct {
	Data     any            `json:"data"`
	Page     int            `json:"page"`
	HasNext  bool           `json:"has_next_page"`
	Filters  map[string]any `json:"filters,omitempty"`
	ShareURL string         `json:"share_url,omitempty"`
}

// ActionResponse is the JSON envelope printed by mutating commands.
type ActionResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}
