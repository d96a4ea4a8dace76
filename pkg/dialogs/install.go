package dialogs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

const (
	PackageRegistry = "REGISTRY"
	PackageArchive  = "ARCHIVE"
	ScopeProject    = "PROJECT"
	ScopePlatform   = "PLATFORM"

	PieceAlreadyInstalledMessage = "Piece already installed."
	PieceInstalledMessage        = "Piece installed"
)

// InstallInput holds the install-piece form values.
type InstallInput struct {
	PieceName    string `form:"pieceName"    validate:"required"`
	PieceVersion string `form:"pieceVersion" validate:"required"`
	PackageType  string `form:"packageType"  validate:"required,oneof=REGISTRY ARCHIVE"`
	Scope        string `form:"scope"        validate:"required,oneof=PROJECT PLATFORM"`
	ArchivePath  string `form:"pieceArchive" validate:"required_if=PackageType ARCHIVE"`
}

type Installer interface {
	InstallPiece(ctx context.Context, in InstallInput) error
}

// FlagSource reports whether archive uploads are allowed.
type FlagSource interface {
	PrivatePiecesEnabled(ctx context.Context) (bool, error)
}

type InstallConfig struct {
	Installer Installer
	Flags     FlagSource
	Notifier  listing.Notifier
	// OnInstalled runs after a successful install.
	OnInstalled func()
	// FileExists checks the archive path; nil skips the check.
	FileExists func(path string) bool
	Logger     logger.Logger
}

// InstallPieceForm keeps the form values and the last server error across
// submits so a failed install can be corrected and retried.
type InstallPieceForm struct {
	cfg InstallConfig

	mu             sync.Mutex
	open           bool
	archiveAllowed bool
	values         InstallInput
	serverErr      string
}

// NewInstallPieceForm returns a closed form.
func NewInstallPieceForm(cfg InstallConfig) (*InstallPieceForm, error) {
	if cfg.Installer == nil {
		return nil, fmt.Errorf("install piece form: installer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewLogger(logger.TestConfig())
	}
	return &InstallPieceForm{cfg: cfg, values: defaultInstallInput()}, nil
}

func defaultInstallInput() InstallInput {
	return InstallInput{PackageType: PackageRegistry, Scope: ScopeProject}
}

// Open shows the form. The package type selector offers ARCHIVE only when
// private pieces are enabled; a flag lookup failure hides it.
func (f *InstallPieceForm) Open(ctx context.Context) {
	allowed := false
	if f.cfg.Flags != nil {
		enabled, err := f.cfg.Flags.PrivatePiecesEnabled(ctx)
		if err != nil {
			f.cfg.Logger.Warn("failed to read platform flags", "error", err)
		}
		allowed = err == nil && enabled
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.archiveAllowed = allowed
}

func (f *InstallPieceForm) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// PackageTypes lists the selectable package types.
func (f *InstallPieceForm) PackageTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.archiveAllowed {
		return []string{PackageRegistry, PackageArchive}
	}
	return []string{PackageRegistry}
}

func (f *InstallPieceForm) Values() InstallInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// ServerError returns the message of the last failed install, if any.
func (f *InstallPieceForm) ServerError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.serverErr
}

func (f *InstallPieceForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.values = defaultInstallInput()
	f.serverErr = ""
}

// Submit validates locally and installs. Validation errors never reach the
// installer. On a server error the form stays open with its values.
func (f *InstallPieceForm) Submit(ctx context.Context, in InstallInput) error {
	in.PieceName = strings.TrimSpace(in.PieceName)
	in.PieceVersion = strings.TrimSpace(in.PieceVersion)
	f.mu.Lock()
	f.values = in
	archiveAllowed := f.archiveAllowed
	f.mu.Unlock()

	if err := f.validate(in, archiveAllowed); err != nil {
		return err
	}

	f.mu.Lock()
	f.serverErr = ""
	f.mu.Unlock()

	log := f.cfg.Logger.With("piece", in.PieceName, "version", in.PieceVersion)
	if err := f.cfg.Installer.InstallPiece(ctx, in); err != nil {
		msg := listing.UserMessage(err, PieceAlreadyInstalledMessage)
		if listing.IsTransport(err) {
			msg = listing.GenericErrorMessage
		}
		f.mu.Lock()
		f.serverErr = msg
		f.mu.Unlock()
		log.Warn("piece install failed", "error", err)
		return err
	}
	log.Info("piece installed")
	f.Close()
	if f.cfg.OnInstalled != nil {
		f.cfg.OnInstalled()
	}
	if f.cfg.Notifier != nil {
		f.cfg.Notifier.Success("Success", PieceInstalledMessage)
	}
	return nil
}

func (f *InstallPieceForm) validate(in InstallInput, archiveAllowed bool) error {
	if in.PackageType == PackageArchive && !archiveAllowed {
		return listing.NewValidationError("packageType", "archive uploads are disabled on this platform")
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.PackageType == PackageArchive && f.cfg.FileExists != nil && !f.cfg.FileExists(in.ArchivePath) {
		return listing.NewValidationError("pieceArchive", "file not found: %s", in.ArchivePath)
	}
	return nil
}
