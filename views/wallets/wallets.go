package wallets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
)

// Account is a keystore account as listed in the account popup
type Account struct {
	Address    common.Address
	Authorized bool
	Active     bool
}

// Nav returns the navigation bar for the account popup
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " move",
		styles.Key("Enter") + " use",
		styles.Key("n") + " new",
		styles.Key("x") + " revoke all",
		styles.Key("d") + " disconnect",
		styles.Key("Esc") + " close",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// RenderList renders the account list. Clickable areas are relative to the
// first line of the list and carry the account index.
func RenderList(accounts []Account, selectedIdx int) (string, []config.ClickableArea) {
	var listItems []string
	var clickableAreas []config.ClickableArea
	currentY := 0

	if len(accounts) == 0 {
		listItems = append(listItems, lipgloss.NewStyle().Foreground(styles.CMuted).Render("No accounts in the keystore. Press 'n' to create one."))
		return strings.Join(listItems, "\n\n"), clickableAreas
	}

	for i, acct := range accounts {
		var itemStyle lipgloss.Style
		var marker, fullAddr, shortAddr string

		if i == selectedIdx {
			marker = styles.Selected(true)
			itemStyle = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true)
			fullAddr = lipgloss.NewStyle().Foreground(styles.CText).Render(acct.Address.Hex())
			shortAddr = helpers.ShortenAddr(acct.Address.Hex())
		} else {
			marker = styles.Selected(false)
			itemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e1a2aa"))
			fullAddr = helpers.FadeString(acct.Address.Hex(), "#7D5AFC", "#FF87D7")
			shortAddr = helpers.FadeString(helpers.ShortenAddr(acct.Address.Hex()), styles.FadeAddrFrom, styles.FadeAddrTo)
		}

		switch {
		case acct.Active:
			shortAddr = "✓ " + shortAddr + lipgloss.NewStyle().Foreground(styles.CAccent).Render("  connected")
		case acct.Authorized:
			shortAddr = "• " + shortAddr + lipgloss.NewStyle().Foreground(styles.CMuted).Render("  authorized")
		}
		listItems = append(listItems, marker+itemStyle.Render(shortAddr)+"\n  "+fullAddr)

		clickableAreas = append(clickableAreas, config.ClickableArea{
			X:      0,
			Y:      currentY,
			Width:  44,
			Height: 2,
			Index:  i,
		})
		currentY += 3
	}

	return strings.Join(listItems, "\n\n"), clickableAreas
}

// Render renders the account popup body
func Render(accounts []Account, selectedIdx int, keystoreDir string) (string, []config.ClickableArea) {
	header := styles.TitleStyle.Render("Keystore Accounts")
	subtitle := lipgloss.NewStyle().Foreground(styles.CMuted).Render(keystoreDir)

	listView, clickableAreas := RenderList(accounts, selectedIdx)

	statusBar := lipgloss.NewStyle().Foreground(styles.CMuted).Render(
		fmt.Sprintf("%d accounts", len(accounts)),
	)

	// header + subtitle + blank line
	for i := range clickableAreas {
		clickableAreas[i].Y += 3
	}

	content := header + "\n" + subtitle + "\n\n" + listView + "\n\n" + statusBar
	return content, clickableAreas
}
