package log

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
)

// Height returns the number of log lines shown for a screen of the given
// height: at most a third of the screen and never more than 15.
func Height(screen int) int {
	// header, nav, panel chrome and margins
	available := helpers.Max(5, screen-10)
	return helpers.Min(available, helpers.Min(screen/3, 15))
}

// State is what the log panel shows besides the viewport itself
type State struct {
	Ready       bool
	SpinnerView string
	Live        int // live subscriptions currently up
}

// Render renders the log panel. vp.Height must already be set with Height.
func Render(width int, st State, vp viewport.Model) string {
	title := styles.TitleStyle.Render("Log")

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(vp.Height + 2) // title and spacing

	if !st.Ready {
		return border.Render(title + "\n\n" + "initializing...\n" + st.SpinnerView)
	}

	var info []string
	if n := vp.TotalLineCount(); n > vp.Height {
		info = append(info, fmt.Sprintf("%d%%", int(vp.ScrollPercent()*100)))
	}
	if st.Live > 0 {
		info = append(info, fmt.Sprintf("%d live", st.Live))
	}
	if len(info) > 0 {
		title += styles.MutedStyle.Render(" [" + strings.Join(info, " • ") + "]")
	}

	return border.Render(title + "\n\n" + vp.View())
}
