package settings

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wave-portal-tui/config"
	"wave-portal-tui/styles"
)

// Nav returns the navigation bar for settings view
func Nav(width int, settingsMode string) string {
	var left string
	if settingsMode == "add" || settingsMode == "edit" {
		left = strings.Join([]string{
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("e") + " edit",
			styles.Key("d") + " delete",
			styles.Key("h") + " home",
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// Info is the read-side connection shown above the wallet networks
type Info struct {
	ReadURL  string
	Contract string
	ChainID  int64
	Wallet   string // chain id reported by the wallet network, if any
}

// Render renders the wallet network settings view
func Render(networks []config.Network, selectedIdx int, info Info) string {
	h := styles.TitleStyle.Render("Network Settings")
	muted := lipgloss.NewStyle().Foreground(styles.CMuted)
	text := lipgloss.NewStyle().Foreground(styles.CText)

	readURL := info.ReadURL
	if readURL == "" {
		readURL = "not set"
	}

	lines := []string{
		h,
		"",
		muted.Render("Contract  ") + text.Render(info.Contract),
		muted.Render("Read RPC  ") + text.Render(readURL),
		muted.Render("Chain     ") + text.Render(chainLabel(info.ChainID, info.Wallet)),
		"",
	}

	if len(networks) == 0 {
		lines = append(lines, muted.Render("No wallet networks configured."))
		lines = append(lines, "")
		lines = append(lines, muted.Render("Press ")+styles.Key("a")+muted.Render(" to add the endpoint your wallet sends through."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, muted.Render("Wallet Networks:"))
	lines = append(lines, "")

	for i, n := range networks {
		var marker string
		if n.Active {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
		} else {
			marker = muted.Render("○ ")
		}

		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		urlStyle := lipgloss.NewStyle().Foreground(styles.CMuted)

		if i == selectedIdx {
			nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
			urlStyle = urlStyle.Background(styles.CPanel)
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
		}

		lines = append(lines, marker+nameStyle.Render(n.Name))
		lines = append(lines, "  "+urlStyle.Render(n.URL))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func chainLabel(want int64, wallet string) string {
	s := "waves go to chain " + strconv.FormatInt(want, 10)
	if wallet != "" {
		s += ", wallet on chain " + wallet
	}
	return s
}
