package styles

import "github.com/charmbracelet/lipgloss"

// Theme colors
var (
	CBg      = lipgloss.Color("#0B0F14") // near-black
	CPanel   = lipgloss.Color("#0F1720") // slightly lighter
	CBorder  = lipgloss.Color("#874BFD")
	CMuted   = lipgloss.Color("#8AA0B6")
	CText    = lipgloss.Color("#D6E2F0")
	CAccent  = lipgloss.Color("#7EE787") // green-ish
	CAccent2 = lipgloss.Color("#79C0FF") // blue-ish
	CWarn    = lipgloss.Color("#FFA657") // orange
	CError   = lipgloss.Color("#FF5F5F")
	CDim     = lipgloss.Color("#666666")
	CPink    = lipgloss.Color("#F25D94")
)

// Gradient endpoints for FadeString
const (
	FadeAddrFrom  = "#F25D94"
	FadeAddrTo    = "#EDFF82"
	FadeTitleFrom = "#7EE787"
	FadeTitleTo   = "#82CFFD"
)

// Shared styles
var (
	AppStyle = lipgloss.NewStyle().
			Background(CBg).
			Foreground(CText)

	TitleStyle = lipgloss.NewStyle().
			Foreground(CAccent2).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(CBorder).
			Padding(1, 2)

	NavStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(CBorder).
			Padding(0, 1)

	HotkeyStyle = lipgloss.NewStyle().
			Foreground(CMuted)

	HotkeyKeyStyle = lipgloss.NewStyle().
			Foreground(CAccent).
			Bold(true)

	HelpRightStyle = lipgloss.NewStyle().
			Foreground(CMuted)

	MutedStyle = lipgloss.NewStyle().Foreground(CMuted)
	DimStyle   = lipgloss.NewStyle().Foreground(CDim)
	OKStyle    = lipgloss.NewStyle().Foreground(CAccent).Bold(true)
	ErrorStyle = lipgloss.NewStyle().Foreground(CError).Bold(true)
	WarnStyle  = lipgloss.NewStyle().Foreground(CWarn).Bold(true)
)

// Dialogs and buttons
var (
	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(CBorder).
			Padding(1, 2).
			Background(CPanel)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Background(lipgloss.Color("#888B7E")).
			Padding(0, 3).
			MarginTop(1)

	ActiveButtonStyle = ButtonStyle.
				Background(CPink).
				MarginRight(2).
				Underline(true)
)

// Key renders a key with accent styling
func Key(s string) string {
	return HotkeyKeyStyle.Render(s)
}

// Selected renders the list marker for the focused row
func Selected(focused bool) string {
	if !focused {
		return "  "
	}
	return lipgloss.NewStyle().Foreground(CAccent2).Bold(true).Render("▶ ")
}
