package styles

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#9D8CFF"}
	Highlight = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#FFFFFF"}
	Surface   = lipgloss.AdaptiveColor{Light: "#E8E6F8", Dark: "#2E2A4F"}
	Border    = lipgloss.AdaptiveColor{Light: "#C4C4C4", Dark: "#4A4A4A"}
	Muted     = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#888888"}
	Success   = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	Danger    = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#FF6B6B"}
	Warning   = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#E3B341"}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	InfoStyle       = lipgloss.NewStyle().Foreground(Primary)
	WarningStyle    = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle      = lipgloss.NewStyle().Foreground(Danger).Bold(true)
	SuccessStyle    = lipgloss.NewStyle().Foreground(Success).Bold(true)
	HelpStyle       = lipgloss.NewStyle().Foreground(Muted)
	HelpKeyStyle    = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	HelpDescStyle   = lipgloss.NewStyle().Foreground(Muted)
	PaginationStyle = lipgloss.NewStyle().Foreground(Muted).PaddingTop(1)

	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(Border).
			PaddingRight(1)
	SidebarItemStyle   = lipgloss.NewStyle().PaddingLeft(1)
	SidebarActiveStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(Highlight).
				Background(Surface).
				Bold(true)

	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	ToastSuccessStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Success).
				Padding(0, 1)
	ToastErrorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Danger).
			Padding(0, 1)

	StatusEnabledStyle  = lipgloss.NewStyle().Foreground(Success)
	StatusDisabledStyle = lipgloss.NewStyle().Foreground(Muted)
)

func RenderTitle(title string) string {
	return TitleStyle.Render(title)
}
