package dialogs

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

// State is the stage of the new-connection dialog.
type State int

const (
	StateClosed State = iota
	StateSelectingType
	StateConfiguringInstance
)

func (s State) String() string {
	switch s {
	case StateSelectingType:
		return "selecting_type"
	case StateConfiguringInstance:
		return "configuring_instance"
	default:
		return "closed"
	}
}

// PieceOption is one entry of the piece catalog.
type PieceOption struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	LogoURL     string `json:"logoUrl,omitempty"`
	Version     string `json:"version"`
	HasAuth     bool   `json:"hasAuth"`
}

type PieceCatalog interface {
	ListPieceOptions(ctx context.Context) ([]PieceOption, error)
}

// ConnectionInput is what the type-specific form collects. Value carries
// the ValueFields of Type; NO_AUTH connections carry none.
type ConnectionInput struct {
	Name  string            `form:"name"  validate:"required,max=255"`
	Type  string            `form:"type"  validate:"required,oneof=SECRET_TEXT BASIC_AUTH CUSTOM_AUTH OAUTH2 NO_AUTH"`
	Value map[string]string `form:"value"`
}

// Connection auth types.
const (
	AuthSecretText = "SECRET_TEXT"
	AuthBasic      = "BASIC_AUTH"
	AuthCustom     = "CUSTOM_AUTH"
	AuthOAuth2     = "OAUTH2"
	AuthNone       = "NO_AUTH"
)

// AuthTypes lists every auth type in the order forms offer them.
func AuthTypes() []string {
	return []string{AuthSecretText, AuthBasic, AuthCustom, AuthOAuth2, AuthNone}
}

// ValueFields lists the value keys a connection of authType carries.
func ValueFields(authType string) []string {
	switch authType {
	case AuthSecretText:
		return []string{"secret_text"}
	case AuthBasic:
		return []string{"username", "password"}
	case AuthCustom:
		return []string{"props"}
	case AuthOAuth2:
		return []string{"access_token"}
	default:
		return nil
	}
}

type Created struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ConnectionCreator interface {
	CreateConnection(ctx context.Context, pieceName string, in ConnectionInput) (Created, error)
}

type NewConnectionConfig struct {
	Catalog PieceCatalog
	Creator ConnectionCreator
	// OnCreated runs after a successful submit, typically to refresh the
	// connections listing.
	OnCreated func(Created)
	Logger    logger.Logger
}

// NewConnectionDialog is the two-stage create flow: pick a piece that
// supports authentication, then fill in its connection form.
type NewConnectionDialog struct {
	cfg NewConnectionConfig

	mu       sync.Mutex
	state    State
	pieces   []PieceOption
	search   string
	selected *PieceOption
}

// NewNewConnectionDialog returns a closed dialog.
func NewNewConnectionDialog(cfg NewConnectionConfig) (*NewConnectionDialog, error) {
	if cfg.Catalog == nil || cfg.Creator == nil {
		return nil, fmt.Errorf("new connection dialog: catalog and creator are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewLogger(logger.TestConfig())
	}
	return &NewConnectionDialog{cfg: cfg}, nil
}

func (d *NewConnectionDialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Open loads the catalog and shows the type selector. A catalog failure
// leaves the dialog closed.
func (d *NewConnectionDialog) Open(ctx context.Context) error {
	pieces, err := d.cfg.Catalog.ListPieceOptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load piece catalog: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pieces = pieces
	d.search = ""
	d.selected = nil
	d.state = StateSelectingType
	d.cfg.Logger.Debug("new connection dialog opened", "pieces", len(pieces))
	return nil
}

func (d *NewConnectionDialog) SetSearch(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.search = term
}

func (d *NewConnectionDialog) Search() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.search
}

// Candidates returns the pieces with an auth capability whose display name
// contains the search term, case-insensitively.
func (d *NewConnectionDialog) Candidates() []PieceOption {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.candidatesLocked()
}

func (d *NewConnectionDialog) candidatesLocked() []PieceOption {
	term := strings.ToLower(strings.TrimSpace(d.search))
	out := make([]PieceOption, 0, len(d.pieces))
	for _, p := range d.pieces {
		if !p.HasAuth {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(p.DisplayName), term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Select moves to the configuration stage for the named candidate.
func (d *NewConnectionDialog) Select(pieceName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateSelectingType {
		return fmt.Errorf("cannot select a piece while %s", d.state)
	}
	if pieceName == "" {
		return listing.ErrNoSubtypeSelected
	}
	candidates := d.candidatesLocked()
	i := slices.IndexFunc(candidates, func(p PieceOption) bool { return p.Name == pieceName })
	if i < 0 {
		return listing.NewValidationError("piece", "%s does not support connections", pieceName)
	}
	selected := candidates[i]
	d.selected = &selected
	d.state = StateConfiguringInstance
	return nil
}

func (d *NewConnectionDialog) Selected() (PieceOption, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return PieceOption{}, false
	}
	return *d.selected, true
}

// Cancel closes the dialog from any state without side effects.
func (d *NewConnectionDialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// valueFor keeps the fields of authType and requires each of them.
func valueFor(authType string, value map[string]string) (map[string]string, error) {
	fields := ValueFields(authType)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		v := value[field]
		if strings.TrimSpace(v) == "" {
			return nil, listing.NewValidationError("value", "%s is required for %s", field, authType)
		}
		out[field] = v
	}
	return out, nil
}

func (d *NewConnectionDialog) resetLocked() {
	d.state = StateClosed
	d.search = ""
	d.selected = nil
}

// Submit validates and creates the connection. Failures keep the dialog in
// the configuration stage.
func (d *NewConnectionDialog) Submit(ctx context.Context, in ConnectionInput) (Created, error) {
	d.mu.Lock()
	if d.state != StateConfiguringInstance || d.selected == nil {
		d.mu.Unlock()
		return Created{}, listing.ErrNoSubtypeSelected
	}
	piece := d.selected.Name
	d.mu.Unlock()

	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return Created{}, err
	}
	value, err := valueFor(in.Type, in.Value)
	if err != nil {
		return Created{}, err
	}
	in.Value = value
	created, err := d.cfg.Creator.CreateConnection(ctx, piece, in)
	if err != nil {
		d.cfg.Logger.Warn("failed to create connection", "piece", piece, "error", err)
		return Created{}, err
	}
	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()
	d.cfg.Logger.Info("connection created", "piece", piece, "id", created.ID)
	if d.cfg.OnCreated != nil {
		d.cfg.OnCreated(created)
	}
	return created, nil
}
