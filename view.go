package main

import (
	"fmt"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/errs"
	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"
	"wave-portal-tui/submit"
	"wave-portal-tui/views/details"
	"wave-portal-tui/views/home"
	logview "wave-portal-tui/views/log"
	"wave-portal-tui/views/settings"
	"wave-portal-tui/views/wallets"
	"wave-portal-tui/views/waves"
	"wave-portal-tui/wallet"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

// place centers a dialog on screen
func (m model) place(dialog string) string {
	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

func (m model) renderNetDeleteDialog() string {
	name := ""
	if m.deleteNetDialogIdx >= 0 && m.deleteNetDialogIdx < len(m.cfg.Networks) {
		name = m.cfg.Networks[m.deleteNetDialogIdx].Name
	}
	msg := helpers.FadeString("Are you sure you want to delete the wallet network "+name+"?", styles.FadeAddrFrom, styles.FadeAddrTo)
	question := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)

	// Apply active style to the selected button
	var okButton, cancelButton string
	if m.deleteNetDialogYesSelected {
		okButton = activeButtonStyle.Render("Yes")
		cancelButton = buttonStyle.Render("No")
	} else {
		okButton = buttonStyle.MarginRight(2).Render("Yes")
		cancelButton = activeButtonStyle.MarginRight(0).Render("No")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, okButton, cancelButton)
	ui := lipgloss.JoinVertical(lipgloss.Center, question, buttons)

	return m.place(dialogBoxStyle.Padding(1, 0).Render(ui))
}

// renderErrorModal shows the friendly message for err until dismissed
func (m model) renderErrorModal() string {
	width := helpers.Min(60, helpers.Max(30, m.w-10))

	title := lipgloss.NewStyle().Foreground(cWarn).Bold(true).Width(width).Align(lipgloss.Center).Render("⚠ Something went wrong")
	friendly := lipgloss.NewStyle().Foreground(cText).Width(width).Align(lipgloss.Center).Render(errs.Message(m.modalErr))
	detail := dimStyle.Width(width).Align(lipgloss.Center).Render(m.modalErr.Error())
	button := activeButtonStyle.MarginRight(0).Render("OK")

	ui := lipgloss.JoinVertical(lipgloss.Center, title, "", friendly, "", detail, button,
		dimStyle.MarginTop(1).Render("Press Enter to dismiss"))
	return m.place(dialogBoxStyle.BorderForeground(cWarn).Render(ui))
}

func (m model) renderPrizePopup() string {
	title := helpers.FadeString("🎉 You won!", styles.FadeTitleFrom, styles.FadeTitleTo)
	body := lipgloss.NewStyle().Foreground(cText).Width(50).Align(lipgloss.Center).Render(m.prizeNotice)
	ui := lipgloss.JoinVertical(lipgloss.Center, title, "", body, dimStyle.MarginTop(1).Render("Press Enter to close"))
	return m.place(dialogBoxStyle.BorderForeground(cAccent).Render(ui))
}

func (m model) renderPromptDialog() string {
	title := "Wallet Request"
	if m.prompt.kind == promptApprove {
		title = "Signature Request"
	}
	header := lipgloss.NewStyle().Foreground(cAccent2).Bold(true).Render(title)
	ui := lipgloss.JoinVertical(lipgloss.Left, header, "", m.promptForm.View(),
		dimStyle.MarginTop(1).Render("Esc rejects the request"))
	return m.place(dialogBoxStyle.Render(ui))
}

// renderAccountListPopup renders the keystore account popup and registers
// its clickable rows in screen coordinates.
func (m *model) renderAccountListPopup() string {
	help := lipgloss.NewStyle().
		Foreground(cMuted).
		MarginTop(1).
		Render("↑/↓: Navigate • Enter: Use • n: New • x: Revoke all • Esc: Close")

	if m.accountForm != nil {
		ui := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("New Account"), "", m.accountForm.View())
		return m.place(dialogBoxStyle.Render(ui))
	}

	body, areas := wallets.Render(m.accountList(), m.accountListSelectedIdx, m.cfg.Wallet.KeystoreDir)
	dialog := dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, help))

	// Place centers the dialog; border (1) and padding (1 top, 2 left) precede the body
	startX := helpers.Max(0, (m.w-lipgloss.Width(dialog))/2) + 3
	startY := helpers.Max(0, (m.h-lipgloss.Height(dialog))/2) + 2

	m.clickableAreas = nil
	for _, area := range areas {
		m.clickableAreas = append(m.clickableAreas, config.ClickableArea{
			X:      startX + area.X,
			Y:      startY + area.Y,
			Width:  area.Width,
			Height: area.Height,
			Index:  area.Index,
		})
	}

	return m.place(dialog)
}

func (m *model) renderTxContent() string {
	p := m.pending()
	content := titleStyle.Render("Wave Transaction") + "\n\n"

	if p.Message != "" {
		content += lipgloss.NewStyle().Foreground(cText).Italic(true).Render("“"+helpers.Truncate(p.Message, 60)+"”") + "\n\n"
	}

	switch p.State {
	case submit.Submitting:
		content += m.spin.View() + " Waiting for the wallet to sign…"
	case submit.AwaitingConfirmation:
		content += m.spin.View() + " Waiting for the wave to be mined…"
	case submit.Confirmed:
		content += okStyle.Render("✓ Wave confirmed")
		if p.Receipt != nil {
			content += dimStyle.Render(fmt.Sprintf("  block %s, gas %d", p.Receipt.BlockNumber, p.Receipt.GasUsed))
		}
	case submit.Failed:
		content += errorStyle.Render("✗ " + errs.Message(p.Err))
		if p.Err != nil {
			content += "\n" + dimStyle.Render(p.Err.Error())
		}
	default:
		content += dimStyle.Render("No wave in progress")
	}

	if p.Hash != nil {
		url := m.explorer.TxURL(*p.Hash)
		content += "\n\n" + rpc.GenerateQRCode(url) + "\n"
		content += okStyle.Render("Transaction:") + "\n"
		content += p.Hash.Hex() + "\n" + dimStyle.Render(url)
		content += "\n\n" + dimStyle.Render("Scan the QR code to follow the wave in a block explorer")
		content += "\n" + dimStyle.Render("Click anywhere or press c to copy the link • Press ESC or Enter to close")
	} else {
		content += "\n\n" + dimStyle.Render("Press ESC or Enter to close")
	}

	// Show copied message if present
	if m.txCopiedMsg != "" {
		content += "\n" + okStyle.Render(m.txCopiedMsg)
	}
	return content
}

func (m *model) renderTxPanel() string {
	contentWidth := helpers.Max(0, m.w-8)
	centeredContent := lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(m.renderTxContent())
	content := panelStyle.Width(helpers.Max(0, m.w-4)).Render(centeredContent)
	return appStyle.Render(m.place(content))
}

func (m *model) globalHeader() string {
	availableWidth := helpers.Max(0, m.w-8) // Account for panel padding
	s := m.session.Session()

	// Wallet session
	const addrLabel = "Account: "
	var addrDisplay string
	m.headerAddrX, m.headerAddrY, m.headerAddrWidth = 0, 0, 0
	switch {
	case s.Connected():
		short := helpers.ShortenAddr(s.Account.Hex())
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render(addrLabel + helpers.FadeString(short, styles.FadeAddrFrom, styles.FadeAddrTo))
		if name := m.ensNames[*s.Account]; name != "" {
			addrDisplay += lipgloss.NewStyle().Foreground(cAccent).Render(" (" + name + ")")
		}

		// Track header address position for double-click detection
		// X position: 3 (panel left border + padding) + length of the label
		// Y position: 2 (panel top border + padding)
		m.headerAddrX = 3 + len(addrLabel)
		m.headerAddrY = 2
		m.headerAddrWidth = len(short)
	case s.Status == wallet.StatusConnecting || m.connecting:
		addrDisplay = m.spin.View() + lipgloss.NewStyle().Foreground(cMuted).Render(" Connecting wallet…")
	case s.Status == wallet.StatusError:
		addrDisplay = warningStyle.Render("Wallet: " + errs.Message(s.Err))
	default:
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render("Wallet: not connected")
	}

	// Read RPC status
	var statusIcon, statusText string
	statusColor := styles.CError
	switch {
	case m.rpcURL == "":
		statusIcon, statusText = "○", "No RPC"
	case m.rpcConnecting:
		statusIcon, statusText = "○", "Connecting..."
	case !m.rpcConnected:
		statusIcon, statusText = "○", "Connection Failed"
	default:
		statusIcon, statusColor = "●", cAccent
		statusText = "Node"
		if m.rpcChainID != nil {
			statusText = fmt.Sprintf("Node (chain %s)", m.rpcChainID)
		}
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	titleText := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString("wave portal", styles.FadeTitleFrom, styles.FadeTitleTo))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		// Three-column layout: Account | Title (centered) | RPC
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		leftSpacer := strings.Repeat(" ", helpers.Max(1, leftPadding))
		rightSpacer := strings.Repeat(" ", helpers.Max(1, rightPadding))

		headerLine = addrDisplay + leftSpacer + titleText + rightSpacer + rpcDisplay
	}

	// Second line: balance, wallet network, pending wave, warnings
	var info []string
	if s.Connected() {
		switch {
		case m.balanceLoading && m.balance.Wei == nil:
			info = append(info, m.spin.View()+" balance")
		case m.balance.ErrMessage != "":
			info = append(info, warningStyle.Render("balance unavailable"))
		case m.balance.Wei != nil:
			info = append(info, helpers.FormatETH(m.balance.Wei)+" ETH "+dimStyle.Render(helpers.LoadedAt(m.balance.LoadedAt, m.balanceLoading)))
		}
	}
	switch {
	case m.switching:
		info = append(info, m.spin.View()+" switching wallet network")
	case m.walletNetwork != "":
		info = append(info, "wallet via "+m.walletNetwork)
	}
	if p := m.pending(); p.InFlight() {
		info = append(info, m.spin.View()+" wave "+strings.ToLower(p.State.String())+dimStyle.Render(" (p)"))
	}
	if s.Warning != nil {
		info = append(info, warningStyle.Render("⚠ "+errs.Message(s.Warning)))
	}
	if len(info) > 0 {
		headerLine += "\n" + lipgloss.NewStyle().Foreground(cMuted).Render(strings.Join(info, "  •  "))
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) View() string {
	// Clear clickable areas for fresh render
	m.clickableAreas = nil

	// Blocking overlays, most urgent first
	switch {
	case m.prompt != nil && m.promptForm != nil:
		return m.renderPromptDialog()
	case m.modalErr != nil:
		return m.renderErrorModal()
	case m.prizeNotice != "":
		return m.renderPrizePopup()
	case m.showTxPanel:
		return m.renderTxPanel()
	case m.showNetDeleteDialog:
		return m.renderNetDeleteDialog()
	case m.showAccountListPopup:
		return m.renderAccountListPopup()
	}

	globalHdr := m.globalHeader()
	headerPanel := panelStyle.Width(helpers.Max(0, m.w-2)).Render(globalHdr)
	headerHeight := lipgloss.Height(headerPanel)

	// Render log panel only if enabled
	var logPanel string
	if m.logEnabled {
		m.logViewport.Height = logview.Height(m.h)
		logPanel = logview.Render(m.w, logview.State{
			Ready:       m.logReady,
			SpinnerView: m.logSpinner.View(),
			Live:        len(m.subs),
		}, m.logViewport)
	}

	var pageContent, nav string
	innerWidth := helpers.Max(0, m.w-8)

	switch m.activePage {
	case config.PageHome:
		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(home.Render(m.homeForm))
		nav = home.Nav(m.w - 2)

	case config.PageWaves:
		var compose string
		if m.composing && m.composeForm != nil {
			compose = "\n\n" + panelStyle.BorderForeground(cAccent2).Render(m.composeForm.View())
		}

		// rows left for the list: header, nav, log, panel chrome, list title and footer
		listHeight := m.h - headerHeight - 3 - lipgloss.Height(logPanel) - 4 - 5 - lipgloss.Height(compose)
		sub, live := m.subs[rpc.EventNewWave]
		mode := ""
		if live {
			mode = string(sub.Mode)
		}
		body, areas := waves.Render(m.store.All(), waves.State{
			Seeded:   m.store.Seeded(),
			LoadErr:  m.store.Err(),
			Buffered: m.store.Buffered(),
			Live:     live,
			Mode:     mode,
			Selected: m.selectedWave,
			Height:   helpers.Max(2, listHeight),
			Width:    innerWidth,
			Now:      m.now,
		})

		// Panel border and padding offset the content by (3, 2)
		for _, area := range areas {
			m.clickableAreas = append(m.clickableAreas, config.ClickableArea{
				X:      area.X + 3,
				Y:      area.Y + headerHeight + 2,
				Width:  area.Width,
				Height: area.Height,
				Index:  area.Index,
			})
		}

		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(body + compose)
		nav = waves.Nav(m.w-2, m.composing)

	case config.PageDetails:
		list := m.store.All()
		var body string
		if m.selectedWave < len(list) {
			w := list[m.selectedWave]
			body = details.Render(w, m.ensNames[w.Waver], m.explorer, m.copiedMsg, innerWidth)
		} else {
			body = dimStyle.Render("That wave is no longer available.")
		}
		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(body)
		nav = details.Nav(m.w - 2)

	case config.PageSettings:
		info := settings.Info{
			ReadURL:  m.rpcURL,
			Contract: m.cfg.Contract.Address,
			ChainID:  m.cfg.Contract.ChainID,
		}
		if s := m.session.Session(); s.ChainID != nil {
			info.Wallet = s.ChainID.String()
		}
		body := settings.Render(m.cfg.Networks, m.selectedNetIdx, info)

		// Show form if in add/edit mode
		if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
			body = titleStyle.Render("Wallet Networks") + "\n\n" + m.form.View()
		}

		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(body)
		nav = settings.Nav(m.w-2, m.settingsMode)
	}

	sections := []string{headerPanel, pageContent, nav}
	if logPanel != "" {
		sections = append(sections, logPanel)
	}
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
