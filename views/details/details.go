package details

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"
	"wave-portal-tui/wavelog"
)

// Nav returns the navigation bar for details view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("c") + " copy address",
		styles.Key("t") + " copy tx link",
		styles.Key("↑/↓") + " prev/next",
		styles.Key("l") + " logger",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// link wraps text in an OSC 8 hyperlink
func link(url, text string) string {
	return ansi.SetHyperlink(url) + text + ansi.ResetHyperlink()
}

// Render renders a single wave
func Render(w wavelog.WaveRecord, ensName string, explorer rpc.Explorer, copiedMsg string, width int) string {
	h := styles.TitleStyle.Render("Wave Details")

	label := lipgloss.NewStyle().Foreground(styles.CMuted).Width(8)
	addrStyle := lipgloss.NewStyle().Foreground(styles.CText).Underline(true)

	from := link(explorer.AddressURL(w.Waver), addrStyle.Render(w.Waver.Hex()))
	if ensName != "" {
		from = lipgloss.NewStyle().Foreground(styles.CAccent2).Italic(true).Render(ensName) + "  " + from
	}
	if copiedMsg != "" {
		from += "  " + lipgloss.NewStyle().Foreground(styles.CAccent).Render(copiedMsg)
	}

	lines := []string{
		h,
		"",
		label.Render("From") + from,
		label.Render("When") + lipgloss.NewStyle().Foreground(styles.CText).Render(w.Time().Local().Format("Mon, 02 Jan 2006 15:04:05 MST")),
	}

	if w.BlockNumber > 0 {
		lines = append(lines, label.Render("Block")+lipgloss.NewStyle().Foreground(styles.CText).Render(fmt.Sprintf("%d", w.BlockNumber)))
	}
	if w.TxHash != (wavelog.WaveRecord{}).TxHash {
		tx := link(explorer.TxURL(w.TxHash), addrStyle.Render(helpers.ShortenAddr(w.TxHash.Hex())))
		lines = append(lines, label.Render("Tx")+tx)
	}

	msgBox := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CAccent2).
		Padding(0, 1).
		Width(helpers.Max(20, width-6)).
		Render(w.Message)

	lines = append(lines, "", msgBox)
	return strings.Join(lines, "\n")
}
