package waves

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"wave-portal-tui/config"
	"wave-portal-tui/errs"
	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
	"wave-portal-tui/wavelog"
)

// State carries what the list needs besides the waves themselves
type State struct {
	Seeded   bool
	LoadErr  error
	Buffered int
	Live     bool // at least one live subscription is up
	Mode     string
	Selected int
	Height   int // rows available for the list
	Width    int
	Now      time.Time
}

// Nav returns the navigation bar for the waves view
func Nav(width int, composing bool) string {
	var left string
	if composing {
		left = strings.Join([]string{
			styles.Key("Enter") + " send",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " move",
			styles.Key("Enter") + " details",
			styles.Key("w") + " wave",
			styles.Key("c") + " connect",
			styles.Key("d") + " disconnect",
			styles.Key("a") + " accounts",
			styles.Key("s") + " networks",
			styles.Key("h") + " home",
			styles.Key("l") + " log",
			styles.Key("q") + " quit",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// Window returns the first index to render so that selected stays visible.
func Window(total, selected, rows int) int {
	if rows <= 0 || total <= rows {
		return 0
	}
	start := selected - rows/2
	return helpers.Clamp(start, total-rows+1)
}

// Render renders the wave log. The clickable areas carry the wave index and
// are relative to the top of the panel content.
func Render(list []wavelog.WaveRecord, st State) (string, []config.ClickableArea) {
	header := styles.TitleStyle.Render("👋 Wave Portal")
	subtitle := lipgloss.NewStyle().Foreground(styles.CMuted).Render("Wave at me on Ethereum, maybe win some ETH")

	status := liveStatus(st)
	lines := []string{header, subtitle + "  " + status, ""}

	var areas []config.ClickableArea

	switch {
	case !st.Seeded:
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CMuted).Render("Loading wave history…"))
	case st.LoadErr != nil && len(list) == 0:
		lines = append(lines,
			lipgloss.NewStyle().Foreground(styles.CWarn).Render("⚠ Could not load wave history"),
			lipgloss.NewStyle().Foreground(styles.CMuted).Render(errs.Message(st.LoadErr)),
		)
	case len(list) == 0:
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CMuted).Render("No waves yet. Press ")+styles.Key("w")+lipgloss.NewStyle().Foreground(styles.CMuted).Render(" to be the first."))
	default:
		rows := helpers.Max(1, st.Height/2)
		start := Window(len(list), st.Selected, rows)
		end := helpers.Min(len(list), start+rows)
		msgWidth := helpers.Max(10, st.Width-8)

		for i := start; i < end; i++ {
			w := list[i]
			var marker string
			who := helpers.ShortenAddr(w.Waver.Hex())
			when := helpers.WaveTime(w.Time(), st.Now)
			msgStyle := lipgloss.NewStyle().Foreground(styles.CText)
			if i == st.Selected {
				marker = styles.Selected(true)
				who = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render(who)
				msgStyle = msgStyle.Bold(true)
			} else {
				marker = styles.Selected(false)
				who = helpers.FadeString(who, styles.FadeAddrFrom, styles.FadeAddrTo)
			}
			meta := who + lipgloss.NewStyle().Foreground(styles.CMuted).Render("  "+when)
			lines = append(lines, marker+meta, "  "+msgStyle.Render(helpers.Truncate(w.Message, msgWidth)))
			areas = append(areas, config.ClickableArea{
				X:      0,
				Y:      len(lines) - 2,
				Width:  st.Width,
				Height: 2,
				Index:  i,
			})
		}
		if start > 0 || end < len(list) {
			lines = append(lines, "", lipgloss.NewStyle().Foreground(styles.CMuted).Render(
				fmt.Sprintf("%d–%d of %d", start+1, end, len(list))))
		}
	}

	count := lipgloss.NewStyle().Foreground(styles.CMuted).Render(fmt.Sprintf("%d waves", len(list)))
	lines = append(lines, "", count)
	return strings.Join(lines, "\n"), areas
}

func liveStatus(st State) string {
	if !st.Live {
		return lipgloss.NewStyle().Foreground(styles.CWarn).Render("○ live updates paused")
	}
	s := "● live"
	if st.Mode != "" {
		s += " (" + st.Mode + ")"
	}
	if st.Buffered > 0 {
		s += fmt.Sprintf(", %d queued", st.Buffered)
	}
	return lipgloss.NewStyle().Foreground(styles.CAccent).Render(s)
}
