package components

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
)

// FormWrapper wraps a Huh form with BaseModel integration
type FormWrapper struct {
	models.BaseModel
	form      *huh.Form
	canceled  bool
	completed bool
}

// NewFormWrapper creates a new form wrapper
func NewFormWrapper(ctx context.Context, form *huh.Form) *FormWrapper {
	return &FormWrapper{
		BaseModel: models.NewBaseModel(ctx, models.ModeTUI),
		form:      form,
	}
}

func (f *FormWrapper) Init() tea.Cmd {
	return f.form.Init()
}

func (f *FormWrapper) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "ctrl+c" {
		f.canceled = true
		return f, tea.Quit
	}
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		f.SetSize(size.Width, size.Height)
	}
	form, cmd := f.form.Update(msg)
	if frm, ok := form.(*huh.Form); ok {
		f.form = frm
		switch f.form.State {
		case huh.StateCompleted:
			f.completed = true
			return f, tea.Quit
		case huh.StateAborted:
			f.canceled = true
			return f, tea.Quit
		}
	}
	return f, cmd
}

func (f *FormWrapper) View() string {
	return f.form.View()
}

func (f *FormWrapper) IsCanceled() bool {
	return f.canceled
}

func (f *FormWrapper) IsCompleted() bool {
	return f.completed
}

// Run drives the form in its own program and reports cancellation as
// listing.ErrActionCanceled.
func (f *FormWrapper) Run(ctx context.Context, opts ...tea.ProgramOption) error {
	opts = append(opts, tea.WithContext(ctx))
	if _, err := tea.NewProgram(f, opts...).Run(); err != nil {
		return fmt.Errorf("failed to run form: %w", err)
	}
	if !f.completed {
		return listing.ErrActionCanceled
	}
	return nil
}

// FormConfirmer asks with a standalone huh confirm. With AssumeYes set it
// approves without prompting.
type FormConfirmer struct {
	AssumeYes bool
}

func (c FormConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if c.AssumeYes {
		return true, nil
	}
	ok := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// ConnectionFormData collects the fields of a new connection.
type ConnectionFormData struct {
	Piece       string
	Name        string
	AuthType    string
	SecretText  string
	Username    string
	Password    string
	Props       string
	AccessToken string
}

var authLabels = map[string]string{
	dialogs.AuthSecretText: "Secret text",
	dialogs.AuthBasic:      "Basic auth",
	dialogs.AuthCustom:     "Custom auth",
	dialogs.AuthOAuth2:     "OAuth2 access token",
	dialogs.AuthNone:       "No auth",
}

// AuthOptions offers every auth type a connection can be created with.
func AuthOptions() []huh.Option[string] {
	types := dialogs.AuthTypes()
	out := make([]huh.Option[string], 0, len(types))
	for _, t := range types {
		out = append(out, huh.NewOption(authLabels[t], t))
	}
	return out
}

// NewPieceSelectForm lists the candidates of an open connection dialog.
func NewPieceSelectForm(d *dialogs.NewConnectionDialog, data *ConnectionFormData) *huh.Form {
	options := make([]huh.Option[string], 0, len(d.Candidates()))
	for _, p := range d.Candidates() {
		options = append(options, huh.NewOption(p.DisplayName, p.Name))
	}
	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("App").
			Description("Pick the app to connect").
			Options(options...).
			Filtering(true).
			Value(&data.Piece),
	))
}

// NewConnectionFieldsForm asks for the name, the auth type and the value
// fields of that type.
func NewConnectionFieldsForm(data *ConnectionFormData) *huh.Form {
	if data.AuthType == "" {
		data.AuthType = dialogs.AuthSecretText
	}
	hiddenUnless := func(authType string) func() bool {
		return func() bool { return data.AuthType != authType }
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Connection name").
				Value(&data.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Authentication").
				Options(AuthOptions()...).
				Value(&data.AuthType),
		),
		huh.NewGroup(
			huh.NewInput().Title("Secret text").EchoMode(huh.EchoModePassword).Value(&data.SecretText),
		).WithHideFunc(hiddenUnless(dialogs.AuthSecretText)),
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&data.Username),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&data.Password),
		).WithHideFunc(hiddenUnless(dialogs.AuthBasic)),
		huh.NewGroup(
			huh.NewText().Title("Props (JSON)").Value(&data.Props),
		).WithHideFunc(hiddenUnless(dialogs.AuthCustom)),
		huh.NewGroup(
			huh.NewInput().Title("Access token").EchoMode(huh.EchoModePassword).Value(&data.AccessToken),
		).WithHideFunc(hiddenUnless(dialogs.AuthOAuth2)),
	)
}

// Input converts the collected data for NewConnectionDialog.Submit. Only
// the fields of the chosen auth type are kept.
func (d *ConnectionFormData) Input() dialogs.ConnectionInput {
	all := map[string]string{
		"secret_text":  d.SecretText,
		"username":     d.Username,
		"password":     d.Password,
		"props":        d.Props,
		"access_token": d.AccessToken,
	}
	value := map[string]string{}
	for _, field := range dialogs.ValueFields(d.AuthType) {
		if v := all[field]; v != "" {
			value[field] = v
		}
	}
	return dialogs.ConnectionInput{Name: d.Name, Type: d.AuthType, Value: value}
}

// NewInstallPieceFields builds the install form for the package types the
// dialog currently allows.
func NewInstallPieceFields(f *dialogs.InstallPieceForm, data *dialogs.InstallInput) *huh.Form {
	*data = f.Values()
	typeOptions := make([]huh.Option[string], 0, 2)
	for _, t := range f.PackageTypes() {
		typeOptions = append(typeOptions, huh.NewOption(strings.ToLower(t), t))
	}
	fields := []huh.Field{
		huh.NewInput().Title("Piece name").Placeholder("@scope/piece-name").Value(&data.PieceName),
		huh.NewInput().Title("Version").Placeholder("0.1.0").Value(&data.PieceVersion),
		huh.NewSelect[string]().Title("Package type").Options(typeOptions...).Value(&data.PackageType),
		huh.NewSelect[string]().
			Title("Scope").
			Options(
				huh.NewOption("project", dialogs.ScopeProject),
				huh.NewOption("platform", dialogs.ScopePlatform),
			).
			Value(&data.Scope),
	}
	if msg := f.ServerError(); msg != "" {
		fields = append([]huh.Field{huh.NewNote().Title("Error").Description(msg)}, fields...)
	}
	return huh.NewForm(
		huh.NewGroup(fields...),
		huh.NewGroup(
			huh.NewFilePicker().
				Title("Archive").
				AllowedTypes([]string{".tgz"}).
				Value(&data.ArchivePath),
		).WithHideFunc(func() bool { return data.PackageType != dialogs.PackageArchive }),
	)
}

// NewImportFlowForm asks for the path of an exported flow file.
func NewImportFlowForm(path *string) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Flow file").
			Placeholder("./flow.json").
			Value(path).
			Validate(func(s string) error {
				if !helpers.FileExists(strings.TrimSpace(s)) {
					return errors.New("file not found")
				}
				return nil
			}),
	))
}
