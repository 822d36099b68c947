package home

import (
	"strings"

	"github.com/charmbracelet/huh"

	"wave-portal-tui/styles"
)

// TempSelection stores the home menu selection
var TempSelection string

// CreateForm creates the home menu form
func CreateForm(connected bool) *huh.Form {
	TempSelection = ""

	walletOption := huh.NewOption("Connect Wallet", "connect")
	if connected {
		walletOption = huh.NewOption("Disconnect Wallet", "disconnect")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Options(
					huh.NewOption("Wave Log", "waves"),
					huh.NewOption("Send a Wave", "wave"),
					walletOption,
					huh.NewOption("Keystore Accounts", "accounts"),
					huh.NewOption("Network Settings", "settings"),
				).
				Title("Main Menu").
				Description("Select where to go").
				Value(&TempSelection),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the home view
func Render(form *huh.Form) string {
	if form != nil {
		return form.View()
	}
	return "Loading menu..."
}

// Nav returns the navigation bar for home view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " select",
		styles.Key("Enter") + " go",
		styles.Key("l") + " logger",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
