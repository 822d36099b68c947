package main

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/errs"
	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/submit"
	"wave-portal-tui/views/home"
	"wave-portal-tui/views/wallets"
	"wave-portal-tui/wallet"
	"wave-portal-tui/wavelog"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEMP FORM STORAGE --------------------
// Temporary form field storage (package-level to avoid pointer-to-copy issues)
var (
	tempNetFormName   string
	tempNetFormURL    string
	tempWaveMessage   string
	tempPromptAccount string
	tempPromptPass    string
	tempPromptConfirm bool
	tempNewPass       string
	tempNewPassRepeat string
)

func (m *model) createComposeForm() {
	tempWaveMessage = ""

	desc := "Say hi. Enter sends, Esc cancels."
	text := huh.NewText().
		Title("Wave at me").
		Value(&tempWaveMessage).
		Placeholder("gm! 👋")
	if limit := m.cfg.Limits.MaxMessageLength; limit > 0 {
		text = text.CharLimit(limit)
		desc = fmt.Sprintf("Say hi in up to %d characters. Enter sends, Esc cancels.", limit)
	}
	text = text.Description(desc)

	m.composeForm = huh.NewForm(huh.NewGroup(text)).WithTheme(huh.ThemeCatppuccin())
	m.composeForm.Init()
}

func (m *model) createAddNetworkForm() {
	tempNetFormName = ""
	tempNetFormURL = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Network Name").
				Description("A friendly name for this wallet endpoint").
				Value(&tempNetFormName).
				Placeholder("Rinkeby (Infura)"),

			huh.NewInput().
				Title("RPC URL").
				Description("The node your wallet signs and broadcasts through").
				Value(&tempNetFormURL).
				Placeholder("https://rinkeby.infura.io/v3/...").
				Validate(validateRPCURL),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func (m *model) createEditNetworkForm(idx int) {
	if idx < 0 || idx >= len(m.cfg.Networks) {
		return
	}

	n := m.cfg.Networks[idx]
	tempNetFormName = n.Name
	tempNetFormURL = n.URL

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Network Name").
				Value(&tempNetFormName).
				Placeholder("My Node"),

			huh.NewInput().
				Title("RPC URL").
				Value(&tempNetFormURL).
				Placeholder("https://...").
				Validate(validateRPCURL),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func validateRPCURL(s string) error {
	s = strings.TrimSpace(s)
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(s, scheme) {
			return nil
		}
	}
	if strings.HasSuffix(s, ".ipc") {
		return nil
	}
	return fmt.Errorf("expected an http(s), ws(s) or .ipc endpoint")
}

func (m *model) createPromptForm(p promptMsg) {
	tempPromptAccount = ""
	tempPromptPass = ""
	tempPromptConfirm = true

	switch p.kind {
	case promptAuthorize:
		opts := make([]huh.Option[string], 0, len(p.candidates))
		for _, a := range p.candidates {
			label := a.Hex()
			if name := m.ensNames[a]; name != "" {
				label = name + "  " + label
			}
			opts = append(opts, huh.NewOption(label, a.Hex()))
		}
		m.promptForm = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Connect Wallet").
					Description("Choose the account Wave Portal may use. Esc rejects.").
					Options(opts...).
					Value(&tempPromptAccount),
			),
		).WithTheme(huh.ThemeCatppuccin())

	case promptApprove:
		m.promptForm = huh.NewForm(
			huh.NewGroup(
				huh.NewNote().
					Title("Approve Transaction").
					Description(describeTx(p.req, m.cfg.Contract.Address)),

				huh.NewInput().
					Title("Passphrase").
					Description("Unlocks "+helpers.ShortenAddr(p.req.From.Hex())+" for this transaction only").
					EchoMode(huh.EchoModePassword).
					Value(&tempPromptPass),

				huh.NewConfirm().
					Title("Sign and send?").
					Affirmative("Sign").
					Negative("Reject").
					Value(&tempPromptConfirm),
			),
		).WithTheme(huh.ThemeCatppuccin())
	}

	m.promptForm.Init()
}

// describeTx summarizes a transaction for the approval prompt
func describeTx(req wallet.SignRequest, contract string) string {
	tx := req.Tx
	if tx == nil {
		return "No transaction details."
	}
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
		if strings.EqualFold(to, contract) {
			to += " (WavePortal)"
		}
	}
	maxCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), tx.GasFeeCap())
	maxCost.Add(maxCost, tx.Value())

	lines := []string{
		"From:      " + req.From.Hex(),
		"To:        " + to,
		fmt.Sprintf("Chain:     %s", req.ChainID),
		fmt.Sprintf("Nonce:     %d", tx.Nonce()),
		fmt.Sprintf("Gas limit: %d", tx.Gas()),
		"Max cost:  " + submit.FormatEther(maxCost) + " ETH",
	}
	return strings.Join(lines, "\n")
}

func (m *model) createAccountForm() {
	tempNewPass = ""
	tempNewPassRepeat = ""

	m.accountForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("New Account Passphrase").
				Description("Encrypts the new key in the keystore").
				EchoMode(huh.EchoModePassword).
				Value(&tempNewPass).
				Validate(func(s string) error {
					if len(s) < 8 {
						return fmt.Errorf("use at least 8 characters")
					}
					return nil
				}),

			huh.NewInput().
				Title("Repeat Passphrase").
				EchoMode(huh.EchoModePassword).
				Value(&tempNewPassRepeat).
				Validate(func(s string) error {
					if s != tempNewPass {
						return fmt.Errorf("passphrases do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.accountForm.Init()
}

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// App messages first so background events are never swallowed by an open form
	if cmd, handled := m.handleAppMsg(msg); handled {
		m.updateLogViewport()
		return m, cmd
	}

	if cmd, handled := m.updateForms(msg); handled {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.updateLogViewport()
		return m, cmd
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	}

	return m, nil
}

// updateForms routes input to whichever huh form currently has focus
func (m *model) updateForms(msg tea.Msg) (tea.Cmd, bool) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	// Wallet prompts sit above everything else
	if m.prompt != nil && m.promptForm != nil {
		if isKey && keyMsg.String() == "esc" {
			m.answerPrompt(promptReply{err: errs.ErrUserRejected})
			return nil, true
		}

		form, cmd := m.promptForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.promptForm = f

			if m.promptForm.State == huh.StateCompleted {
				m.answerPrompt(m.promptAnswer())
				return nil, true
			}

			if m.promptForm.State == huh.StateAborted {
				m.answerPrompt(promptReply{err: errs.ErrUserRejected})
				return nil, true
			}
		}
		return cmd, true
	}

	// The error modal takes keys before any other form
	if m.modalErr != nil || m.prizeNotice != "" {
		return nil, false
	}

	if m.accountForm != nil {
		if isKey && keyMsg.String() == "esc" {
			m.accountForm = nil
			return nil, true
		}

		form, cmd := m.accountForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.accountForm = f

			if m.accountForm.State == huh.StateCompleted {
				pass := tempNewPass
				tempNewPass, tempNewPassRepeat = "", ""
				m.accountForm = nil
				m.addLog("info", "Creating keystore account…")
				return createAccount(m.keystore, pass), true
			}

			if m.accountForm.State == huh.StateAborted {
				m.accountForm = nil
				return nil, true
			}
		}
		return cmd, true
	}

	if m.composing && m.composeForm != nil {
		if isKey && keyMsg.String() == "esc" {
			m.composing = false
			m.composeForm = nil
			return nil, true
		}

		form, cmd := m.composeForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.composeForm = f

			if m.composeForm.State == huh.StateCompleted {
				m.composing = false
				m.composeForm = nil
				return m.submitWave(tempWaveMessage), true
			}

			if m.composeForm.State == huh.StateAborted {
				m.composing = false
				m.composeForm = nil
				return nil, true
			}
		}
		return cmd, true
	}

	if m.activePage == config.PageSettings && (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
		if isKey && keyMsg.String() == "esc" {
			m.settingsMode = "list"
			m.form = nil
			return nil, true
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f

			if m.form.State == huh.StateCompleted {
				cmd := m.saveNetworkForm()
				m.settingsMode = "list"
				m.form = nil
				return cmd, true
			}

			if m.form.State == huh.StateAborted {
				m.settingsMode = "list"
				m.form = nil
				return nil, true
			}
		}
		return cmd, true
	}

	if m.activePage == config.PageHome && m.homeForm != nil {
		if isKey && keyMsg.String() == "esc" {
			m.homeForm = nil
			m.activePage = config.PageWaves
			return nil, true
		}
		if isKey && (keyMsg.String() == "l" || keyMsg.String() == "q" || keyMsg.String() == "ctrl+c") {
			return nil, false
		}

		form, cmd := m.homeForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.homeForm = f

			if m.homeForm.State == huh.StateCompleted {
				m.homeForm = nil
				return m.openFromHome(home.TempSelection), true
			}

			if m.homeForm.State == huh.StateAborted {
				m.homeForm = nil
				m.activePage = config.PageWaves
				return nil, true
			}
		}
		return cmd, true
	}

	return nil, false
}

func (m *model) openFromHome(selection string) tea.Cmd {
	m.activePage = config.PageWaves
	switch selection {
	case "wave":
		return m.startCompose()
	case "connect":
		return m.startConnect()
	case "disconnect":
		m.disconnect()
	case "accounts":
		return m.openAccountPopup()
	case "settings":
		m.activePage = config.PageSettings
	}
	return nil
}

// handleAppMsg handles everything that is not user input
func (m *model) handleAppMsg(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return nil, true
		}
		// Create logger that writes to our buffer
		m.logger = log.NewWithOptions(m.logBuffer, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          "",
		})
		m.logger.SetLevel(log.DebugLevel)
		m.logger.SetStyles(&log.Styles{
			Timestamp: lipgloss.NewStyle().Foreground(cMuted),
			Caller:    lipgloss.NewStyle().Faint(true),
			Prefix:    lipgloss.NewStyle().Bold(true).Foreground(cAccent2),
			Message:   lipgloss.NewStyle().Foreground(cText),
			Key:       lipgloss.NewStyle().Foreground(cAccent),
			Value:     lipgloss.NewStyle().Foreground(cText),
			Separator: lipgloss.NewStyle().Faint(true),
			Levels: map[log.Level]lipgloss.Style{
				log.DebugLevel: lipgloss.NewStyle().Foreground(cMuted).SetString("DEBUG"),
				log.InfoLevel:  lipgloss.NewStyle().Foreground(cAccent2).SetString("INFO"),
				log.WarnLevel:  lipgloss.NewStyle().Foreground(cWarn).SetString("WARN"),
				log.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).SetString("ERROR"),
			},
		})
		m.logReady = true
		m.setDomainLoggers()
		m.addLog("info", "Logger enabled")
		return nil, true

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		if m.logEnabled {
			m.logViewport.Width = max(0, msg.Width-6)
			if m.logReady {
				m.logSeen = -1
				m.updateLogViewport()
			}
		}
		return nil, true

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return tea.Batch(cmds...), true

	case nowTickMsg:
		m.now = time.Time(msg)
		return tickNow(), true

	case busMsg:
		return tea.Batch(m.handleBus(msg.msg), waitForEvent(m.bus)), true

	case rpcConnectedMsg:
		return m.onRPCConnected(msg), true

	case subscribedMsg:
		return m.onSubscribed(msg), true

	case subDroppedMsg:
		cur, ok := m.subs[msg.event]
		if !ok || cur.ID != msg.id {
			return nil, true
		}
		delete(m.subs, msg.event)
		m.addLog("warning", fmt.Sprintf("Live %s updates dropped: %v", msg.event, msg.err))
		return m.scheduleResubscribe(msg.event), true

	case resubscribeMsg:
		if m.gateway == nil || m.ctx.Err() != nil {
			return nil, true
		}
		if _, ok := m.subs[msg.event]; ok {
			return nil, true
		}
		m.addLog("info", fmt.Sprintf("Resubscribing to %s…", msg.event))
		return subscribe(m.ctx, m.gateway, m.bus, msg.event, true), true

	case historyLoadedMsg:
		if msg.err != nil {
			m.store.SeedFailed(msg.err)
			m.addLog("error", fmt.Sprintf("Could not load wave history: %v", msg.err))
			m.showError(msg.err)
			return nil, true
		}
		m.store.Seed(msg.records)
		for _, r := range msg.records {
			m.trackBlock(r)
		}
		m.selectedWave = helpers.Clamp(m.selectedWave, m.store.Len())
		m.addLog("success", fmt.Sprintf("Loaded %d waves", m.store.Len()))
		return nil, true

	case catchUpMsg:
		if msg.err != nil {
			m.addLog("warning", fmt.Sprintf("Catch-up query failed: %v", msg.err))
			return nil, true
		}
		applied := 0
		for _, r := range msg.records {
			if m.mergeWave(r) {
				applied++
			}
		}
		m.addLog("info", fmt.Sprintf("Caught up on %d missed waves", applied))
		return nil, true

	case walletEventMsg:
		if !msg.ok {
			m.walletEvents = nil
			return nil, true
		}
		return tea.Batch(m.onWalletEvent(msg.ev), waitForWalletEvent(m.walletEvents)), true

	case walletNetworkMsg:
		m.switching = false
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Wallet network `%s` unavailable: %v", msg.name, msg.err))
			if !msg.startup {
				m.showError(msg.err)
				return nil, true
			}
			// Fall back to the read endpoint, then restore regardless; keys are local
			if msg.name != readRPCNetwork && m.rpcURL != "" {
				m.switching = true
				return switchWalletNetwork(m.ctx, m.keystore, readRPCNetwork, m.rpcURL, true), true
			}
			return restoreSession(m.ctx, m.session), true
		}
		m.walletNetwork = msg.name
		m.addLog("success", fmt.Sprintf("Wallet network `%s` (chain %s)", msg.name, msg.chainID))
		if msg.startup {
			return restoreSession(m.ctx, m.session), true
		}
		return nil, true

	case restoreMsg:
		if !m.session.FinishRestore(msg.res) {
			return nil, true
		}
		s := m.session.Session()
		m.addLog("success", fmt.Sprintf("Restored wallet session for `%s`", helpers.ShortenAddr(s.Account.Hex())))
		if s.Warning != nil {
			m.showError(s.Warning)
		}
		return m.onAccountChanged(), true

	case connectMsg:
		m.connecting = false
		if err := m.session.FinishConnect(msg.res); err != nil {
			m.addLog("error", fmt.Sprintf("Wallet connect failed: %v", err))
			m.showError(err)
			return nil, true
		}
		s := m.session.Session()
		m.addLog("success", fmt.Sprintf("Connected `%s`", helpers.ShortenAddr(s.Account.Hex())))
		if s.Warning != nil {
			m.showError(s.Warning)
		}
		return m.onAccountChanged(), true

	case authorizedMsg:
		list := make([]string, len(msg.accounts))
		for i, a := range msg.accounts {
			list[i] = a.Hex()
		}
		m.cfg.Wallet.Authorized = list
		m.saveConfig()
		m.addLog("debug", fmt.Sprintf("Authorized accounts: %d", len(list)))
		return nil, true

	case accountSelectedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Could not select account: %v", msg.err))
			m.showError(msg.err)
			return nil, true
		}
		m.addLog("success", fmt.Sprintf("Selected account `%s`", helpers.ShortenAddr(msg.address.Hex())))
		if !m.session.Session().Connected() {
			return restoreSession(m.ctx, m.session), true
		}
		return nil, true

	case accountCreatedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Could not create account: %v", msg.err))
			m.showError(msg.err)
			return nil, true
		}
		m.addLog("success", fmt.Sprintf("Created account `%s`", msg.address.Hex()))
		for i, a := range m.accountList() {
			if a.Address == msg.address {
				m.accountListSelectedIdx = i
				break
			}
		}
		return nil, true

	case waveSentMsg:
		if m.submitter == nil {
			return nil, true
		}
		if msg.err != nil {
			m.submitter.Finish(nil, msg.err)
			m.addLog("error", fmt.Sprintf("Wave not sent: %v", msg.err))
			m.showError(msg.err)
			return nil, true
		}
		m.submitter.Accepted(msg.handle)
		m.addLog("info", fmt.Sprintf("Wave sent: `%s`", msg.handle.Hash.Hex()))
		return awaitWave(m.ctx, m.submitter, msg.handle), true

	case waveMinedMsg:
		if m.submitter == nil {
			return nil, true
		}
		m.submitter.Finish(msg.receipt, msg.err)
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Wave failed: %v", msg.err))
			m.showError(msg.err)
			return m.onAccountChanged(), true
		}
		if msg.receipt != nil {
			m.addLog("success", fmt.Sprintf("Wave mined in block %s", msg.receipt.BlockNumber))
		}
		return m.onAccountChanged(), true

	case balanceLoadedMsg:
		s := m.session.Session()
		if !s.Connected() || !strings.EqualFold(s.Account.Hex(), msg.balance.Address) {
			return nil, true
		}
		m.balanceLoading = false
		m.balance = msg.balance
		if msg.balance.ErrMessage != "" {
			m.addLog("error", fmt.Sprintf("Balance of `%s`: %s", helpers.ShortenAddr(msg.balance.Address), msg.balance.ErrMessage))
		} else {
			m.addLog("debug", fmt.Sprintf("Balance of `%s`: %s", helpers.ShortenAddr(msg.balance.Address), helpers.FormatETH(msg.balance.Wei)))
		}
		return nil, true

	case ensLookupResultMsg:
		if msg.Error != nil {
			m.ensNames[msg.Address] = ""
			m.addLog("debug", fmt.Sprintf("No ENS name for `%s`: %v", helpers.ShortenAddr(msg.Address.Hex()), msg.Error))
			return nil, true
		}
		m.ensNames[msg.Address] = msg.Name
		if msg.Name != "" {
			m.addLog("success", fmt.Sprintf("Found ENS name: %s", msg.Name))
		}
		return nil, true

	case clipboardCopiedMsg:
		if msg.what == "tx" {
			m.txCopiedMsg = "✓ Copied to clipboard"
			m.txCopiedMsgTime = time.Now()
		} else {
			m.copiedMsg = "✓ Copied " + msg.what
			m.copiedMsgTime = time.Now()
		}
		return clearClipboard(), true

	case clearClipboardMsg:
		if time.Since(m.copiedMsgTime) >= 2*time.Second {
			m.copiedMsg = ""
		}
		if time.Since(m.txCopiedMsgTime) >= 2*time.Second {
			m.txCopiedMsg = ""
		}
		return nil, true
	}

	return nil, false
}

// handleBus handles messages pushed by background goroutines
func (m *model) handleBus(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case waveEventMsg:
		if m.applyWave(msg.record) {
			m.addLog("info", fmt.Sprintf("New wave from `%s`", helpers.ShortenAddr(msg.record.Waver.Hex())))
		} else if !m.store.Seeded() {
			m.addLog("debug", "Buffered live wave until history loads")
		}

	case prizeEventMsg:
		m.addLog("info", fmt.Sprintf("`%s` won %s ETH", helpers.ShortenAddr(msg.prize.Winner.Hex()), submit.FormatEther(msg.prize.Amount)))
		if notice, ok := submit.PrizeNotice(msg.prize, m.session.Session()); ok {
			m.prizeNotice = notice
			return m.onAccountChanged()
		}

	case promptMsg:
		if m.prompt != nil {
			msg.reply <- promptReply{err: fmt.Errorf("another wallet prompt is open: %w", errs.ErrUserRejected)}
			return nil
		}
		m.composing = false
		m.composeForm = nil
		m.prompt = &msg
		m.createPromptForm(msg)
		m.addLog("info", "Wallet is waiting for your answer")
	}
	return nil
}

// promptAnswer turns the completed prompt form into a reply
func (m *model) promptAnswer() promptReply {
	switch m.prompt.kind {
	case promptAuthorize:
		if !common.IsHexAddress(tempPromptAccount) {
			return promptReply{err: errs.ErrUserRejected}
		}
		return promptReply{account: common.HexToAddress(tempPromptAccount)}
	case promptApprove:
		if !tempPromptConfirm {
			return promptReply{err: errs.ErrUserRejected}
		}
		return promptReply{passphrase: tempPromptPass}
	}
	return promptReply{err: errs.ErrUserRejected}
}

// answerPrompt sends the reply and closes the prompt
func (m *model) answerPrompt(r promptReply) {
	if m.prompt == nil {
		return
	}
	m.prompt.reply <- r
	if r.err != nil {
		m.addLog("warning", "Wallet request rejected")
	}
	m.prompt = nil
	m.promptForm = nil
	tempPromptPass = ""
}

// -------------------- CHAIN EVENTS --------------------

func (m *model) onRPCConnected(msg rpcConnectedMsg) tea.Cmd {
	m.rpcConnecting = false
	if msg.err != nil {
		m.ethClient = nil
		m.rpcConnected = false
		err := msg.err
		if !errors.Is(err, errs.ErrNetwork) {
			err = fmt.Errorf("connect %s: %w: %w", m.rpcURL, errs.ErrNetwork, err)
		}
		m.store.SeedFailed(err)
		m.addLog("error", fmt.Sprintf("RPC connection failed: `%v`", msg.err))
		m.showError(err)
		return nil
	}

	m.ethClient = msg.client
	m.rpcChainID = msg.chainID
	m.rpcConnected = true
	m.addLog("success", fmt.Sprintf("RPC connected (chain %s)", msg.chainID))
	if want := big.NewInt(m.cfg.Contract.ChainID); msg.chainID != nil && msg.chainID.Cmp(want) != 0 {
		m.addLog("warning", fmt.Sprintf("Read RPC is on chain %s, the contract lives on chain %s", msg.chainID, want))
	}

	g, err := rpc.NewGateway(msg.client, rpc.GatewayConfig{
		Contract:       common.HexToAddress(m.cfg.Contract.Address),
		StartBlock:     m.cfg.Contract.StartBlock,
		GasLimit:       m.cfg.Limits.GasLimit,
		RequestTimeout: m.cfg.Limits.RequestTimeout(),
		ConfirmTimeout: m.cfg.Limits.ConfirmTimeout(),
		PollInterval:   m.cfg.Limits.PollInterval(),
		Logger:         m.logger,
	})
	if err != nil {
		m.store.SeedFailed(err)
		m.addLog("error", err.Error())
		m.showError(err)
		return nil
	}
	m.gateway = g
	m.submitter = submit.New(submit.Config{
		Chain:     g,
		Sessions:  m.session,
		Signer:    m.signer(),
		MaxLength: m.cfg.Limits.MaxMessageLength,
		Logger:    m.logger,
	})

	// Subscribe before querying history; early live events are buffered by the store
	cmds := []tea.Cmd{
		subscribe(m.ctx, g, m.bus, rpc.EventNewWave, false),
		subscribe(m.ctx, g, m.bus, rpc.EventPrizeWon, false),
	}
	if m.session.Session().Connected() {
		cmds = append(cmds, m.onAccountChanged())
	}
	return tea.Batch(cmds...)
}

func (m *model) onSubscribed(msg subscribedMsg) tea.Cmd {
	var cmds []tea.Cmd
	if msg.err != nil {
		m.addLog("warning", fmt.Sprintf("Live %s updates unavailable: %v", msg.event, msg.err))
		cmds = append(cmds, m.scheduleResubscribe(msg.event))
	} else {
		if m.ctx.Err() != nil {
			msg.sub.Unsubscribe()
			return nil
		}
		m.subs[msg.event] = msg.sub
		m.backoff[msg.event] = 0
		m.addLog("success", fmt.Sprintf("Listening for %s (%s)", msg.event, msg.sub.Mode))
		cmds = append(cmds, watchSubscription(msg.sub))
		if msg.resumed && msg.event == rpc.EventNewWave && m.store.Seeded() {
			cmds = append(cmds, catchUp(m.ctx, m.gateway, m.catchUpFrom()))
		}
	}

	if msg.event == rpc.EventNewWave && !m.history {
		m.history = true
		cmds = append(cmds, loadHistory(m.ctx, m.gateway))
	}
	return tea.Batch(cmds...)
}

// scheduleResubscribe backs off 2s, doubling up to a minute
func (m *model) scheduleResubscribe(event string) tea.Cmd {
	d := m.backoff[event] * 2
	if d == 0 {
		d = initialBackoff
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	m.backoff[event] = d
	m.addLog("debug", fmt.Sprintf("Retrying %s in %s", event, d))
	return resubscribeAfter(event, d)
}

// applyWave records a live wave and keeps the selection on the
// same entry when the list grows above it.
func (m *model) applyWave(r wavelog.WaveRecord) bool {
	m.trackBlock(r)
	if !m.store.ApplyLiveEvent(r) {
		return false
	}
	if m.selectedWave > 0 || m.activePage == config.PageDetails {
		m.selectedWave++
	}
	return true
}

// mergeWave records a wave missed while the subscription was down. It may
// be older than live waves that already arrived, so it goes to its
// timestamp position and the selection follows the entry it was on.
func (m *model) mergeWave(r wavelog.WaveRecord) bool {
	m.trackBlock(r)
	i := m.store.Merge(r)
	if i < 0 {
		return false
	}
	if i <= m.selectedWave && (m.selectedWave > 0 || m.activePage == config.PageDetails) {
		m.selectedWave++
	}
	return true
}

func (m *model) trackBlock(r wavelog.WaveRecord) {
	if r.BlockNumber > m.lastBlock {
		m.lastBlock = r.BlockNumber
	}
}

func (m *model) catchUpFrom() uint64 {
	if m.lastBlock < m.cfg.Contract.StartBlock {
		return m.cfg.Contract.StartBlock
	}
	return m.lastBlock
}

// signer returns the keystore as a signer, or a nil interface without one
func (m *model) signer() rpc.Signer {
	if m.keystore == nil {
		return nil
	}
	return m.keystore
}

// -------------------- WALLET --------------------

func (m *model) onWalletEvent(ev wallet.Event) tea.Cmd {
	switch ev.Kind {
	case wallet.AccountsChanged:
		before := m.session.Session()
		m.session.HandleAccountsChanged(ev.Accounts)
		after := m.session.Session()
		m.addLog("debug", fmt.Sprintf("Wallet %s: %d accounts", ev.Kind, len(ev.Accounts)))

		switch {
		case before.Connected() && !after.Connected():
			m.addLog("warning", "Wallet disconnected")
			m.balance = rpc.AccountBalance{}
		case after.Connected() && (before.Account == nil || *before.Account != *after.Account):
			m.addLog("info", fmt.Sprintf("Account changed to `%s`", helpers.ShortenAddr(after.Account.Hex())))
			return m.onAccountChanged()
		}

	case wallet.ChainChanged:
		if m.session.HandleChainChanged(ev.ChainID) {
			warning := m.session.Session().Warning
			m.addLog("warning", warning.Error())
			m.showError(warning)
		} else {
			m.addLog("info", fmt.Sprintf("Wallet chain is now %s", ev.ChainID))
		}
	}
	return nil
}

// onAccountChanged reloads what depends on the connected account
func (m *model) onAccountChanged() tea.Cmd {
	s := m.session.Session()
	if !s.Connected() {
		m.balance = rpc.AccountBalance{}
		return nil
	}
	if m.ethClient == nil {
		return nil
	}
	acct := *s.Account
	m.balanceLoading = true
	cmds := []tea.Cmd{loadBalance(m.ethClient, acct, m.cfg.Limits.RequestTimeout())}
	if _, ok := m.ensNames[acct]; !ok {
		cmds = append(cmds, lookupENS(m.ethClient, acct))
	}
	return tea.Batch(cmds...)
}

func (m *model) startConnect() tea.Cmd {
	if m.session.Session().Connected() {
		m.addLog("info", "Wallet already connected")
		return nil
	}
	err := m.session.BeginConnect()
	switch {
	case errors.Is(err, wallet.ErrConnectPending):
		return nil
	case err != nil:
		m.showError(err)
		return nil
	}
	m.connecting = true
	m.addLog("info", "Requesting account access…")
	return requestAccess(m.ctx, m.session)
}

func (m *model) disconnect() {
	if !m.session.Session().Connected() {
		return
	}
	m.session.Disconnect()
	m.balance = rpc.AccountBalance{}
	m.addLog("info", "Wallet disconnected")
}

// accountList returns the keystore accounts with their authorization marks
func (m *model) accountList() []wallets.Account {
	if m.keystore == nil {
		return nil
	}
	s := m.session.Session()
	authorized := make(map[string]bool, len(m.cfg.Wallet.Authorized))
	for _, a := range m.cfg.Wallet.Authorized {
		authorized[strings.ToLower(a)] = true
	}
	all := m.keystore.All()
	out := make([]wallets.Account, len(all))
	for i, a := range all {
		out[i] = wallets.Account{
			Address:    a,
			Authorized: authorized[strings.ToLower(a.Hex())],
			Active:     s.Connected() && *s.Account == a,
		}
	}
	return out
}

func (m *model) openAccountPopup() tea.Cmd {
	if m.keystore == nil {
		m.showError(errs.ErrNoProvider)
		return nil
	}
	m.showAccountListPopup = true
	m.accountListSelectedIdx = 0
	s := m.session.Session()
	for i, a := range m.accountList() {
		if s.Connected() && a.Address == *s.Account {
			m.accountListSelectedIdx = i
			break
		}
	}
	m.addLog("info", "Opening account list popup")
	return nil
}

func (m *model) selectAccount(addr common.Address) tea.Cmd {
	ks := m.keystore
	return func() tea.Msg {
		return accountSelectedMsg{address: addr, err: ks.SelectAccount(addr)}
	}
}

func (m *model) revokeAccounts() tea.Cmd {
	ks := m.keystore
	m.addLog("warning", "Revoking account access")
	return func() tea.Msg {
		ks.Revoke()
		return nil
	}
}

// -------------------- SUBMISSION --------------------

func (m *model) startCompose() tea.Cmd {
	if !m.session.Session().Connected() {
		m.showError(errs.ErrNotConnected)
		return nil
	}
	if m.submitter == nil {
		m.showError(fmt.Errorf("read node not connected: %w", errs.ErrNetwork))
		return nil
	}
	if m.submitter.Pending().InFlight() {
		m.showError(errs.ErrBusy)
		return nil
	}
	m.activePage = config.PageWaves
	m.composing = true
	m.createComposeForm()
	return nil
}

func (m *model) submitWave(message string) tea.Cmd {
	if m.submitter == nil {
		m.showError(fmt.Errorf("read node not connected: %w", errs.ErrNetwork))
		return nil
	}
	if err := m.submitter.Begin(message); err != nil {
		m.addLog("warning", fmt.Sprintf("Wave not sent: %v", err))
		m.showError(err)
		return nil
	}
	m.showTxPanel = true
	m.addLog("info", "Waiting for the wallet to sign…")
	return sendWave(m.ctx, m.submitter)
}

func (m *model) closeTxPanel() {
	m.showTxPanel = false
	m.txCopiedMsg = ""
	if m.submitter != nil && m.submitter.Pending().State.Terminal() {
		m.submitter.Acknowledge()
	}
}

// -------------------- SETTINGS --------------------

func (m *model) saveNetworkForm() tea.Cmd {
	name := strings.TrimSpace(tempNetFormName)
	url := strings.TrimSpace(tempNetFormURL)
	if name == "" || url == "" {
		return nil
	}

	switch m.settingsMode {
	case "add":
		n := config.Network{Name: name, URL: url, Active: len(m.cfg.Networks) == 0}
		m.cfg.Networks = append(m.cfg.Networks, n)
		m.selectedNetIdx = len(m.cfg.Networks) - 1
		m.saveConfig()
		m.addLog("success", fmt.Sprintf("Added wallet network: `%s` (%s)", name, url))
		if n.Active {
			return m.activateNetwork(m.selectedNetIdx)
		}
	case "edit":
		if m.selectedNetIdx < 0 || m.selectedNetIdx >= len(m.cfg.Networks) {
			return nil
		}
		n := &m.cfg.Networks[m.selectedNetIdx]
		n.Name, n.URL = name, url
		m.saveConfig()
		m.addLog("success", fmt.Sprintf("Updated wallet network: `%s`", name))
		if n.Active {
			return m.activateNetwork(m.selectedNetIdx)
		}
	}
	return nil
}

func (m *model) activateNetwork(idx int) tea.Cmd {
	if idx < 0 || idx >= len(m.cfg.Networks) {
		return nil
	}
	for i := range m.cfg.Networks {
		m.cfg.Networks[i].Active = i == idx
	}
	m.saveConfig()
	n := m.cfg.Networks[idx]
	if m.keystore == nil {
		m.showError(errs.ErrNoProvider)
		return nil
	}
	m.switching = true
	m.addLog("info", fmt.Sprintf("Switching wallet to `%s`…", n.Name))
	return switchWalletNetwork(m.ctx, m.keystore, n.Name, n.URL, false)
}

func (m *model) deleteNetwork(idx int) {
	if idx < 0 || idx >= len(m.cfg.Networks) {
		return
	}
	name := m.cfg.Networks[idx].Name
	m.cfg.Networks = append(m.cfg.Networks[:idx], m.cfg.Networks[idx+1:]...)
	if m.selectedNetIdx >= len(m.cfg.Networks) && m.selectedNetIdx > 0 {
		m.selectedNetIdx--
	}
	m.saveConfig()
	m.addLog("warning", fmt.Sprintf("Deleted wallet network `%s`", name))
}

func (m *model) saveConfig() {
	m.cfg.Logger = m.logEnabled
	if m.configPath == "" {
		return
	}
	if err := config.Save(m.configPath, m.cfg); err != nil {
		m.addLog("error", fmt.Sprintf("Could not save config: %v", err))
	}
}

// -------------------- MODAL --------------------

func (m *model) showError(err error) {
	if err == nil {
		return
	}
	m.modalErr = err
}

func (m *model) dismissModal() {
	m.modalErr = nil
	m.session.Acknowledge()
}

func (m *model) quit() tea.Cmd {
	m.addLog("info", "Shutting down")
	if m.prompt != nil {
		m.answerPrompt(promptReply{err: errs.ErrUserRejected})
	}
	m.teardown()
	return tea.Quit
}

// -------------------- KEYS --------------------

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if key == "ctrl+c" && !m.showTxPanel {
		return m.quit()
	}

	// Blocking error modal
	if m.modalErr != nil {
		switch key {
		case "enter", "esc", " ":
			m.dismissModal()
		}
		return nil
	}

	if m.prizeNotice != "" {
		switch key {
		case "enter", "esc", " ":
			m.prizeNotice = ""
		}
		return nil
	}

	// Transaction panel
	if m.showTxPanel {
		p := m.pending()
		switch key {
		case "c", "ctrl+c":
			if p.Hash != nil {
				m.addLog("info", "Copied transaction link to clipboard")
				return copyToClipboard(m.explorer.TxURL(*p.Hash), "tx")
			}
		case "esc", "enter":
			m.closeTxPanel()
		}
		return nil
	}

	// Network delete confirmation
	if m.showNetDeleteDialog {
		switch key {
		case "left", "right", "tab":
			m.deleteNetDialogYesSelected = !m.deleteNetDialogYesSelected
		case "enter":
			if m.deleteNetDialogYesSelected {
				m.deleteNetwork(m.deleteNetDialogIdx)
			}
			m.showNetDeleteDialog = false
		case "esc":
			m.showNetDeleteDialog = false
		}
		return nil
	}

	// Account list popup
	if m.showAccountListPopup {
		accounts := m.accountList()
		switch key {
		case "up", "k":
			if m.accountListSelectedIdx > 0 {
				m.accountListSelectedIdx--
			}
		case "down", "j":
			if m.accountListSelectedIdx < len(accounts)-1 {
				m.accountListSelectedIdx++
			}
		case "enter":
			if m.accountListSelectedIdx >= 0 && m.accountListSelectedIdx < len(accounts) {
				m.showAccountListPopup = false
				return m.selectAccount(accounts[m.accountListSelectedIdx].Address)
			}
		case "n":
			m.createAccountForm()
		case "x":
			return m.revokeAccounts()
		case "d":
			m.disconnect()
		case "esc":
			m.showAccountListPopup = false
		}
		return nil
	}

	// global keys
	if !m.textInputActive() {
		switch key {
		case "q":
			return m.quit()

		case "l", "L":
			return m.toggleLogger()

		case "pgup", "pgdown":
			if m.logEnabled && m.logReady {
				var cmd tea.Cmd
				m.logViewport, cmd = m.logViewport.Update(msg)
				return cmd
			}
		}
	}

	switch m.activePage {
	case config.PageWaves:
		return m.handleWavesKey(key)
	case config.PageDetails:
		return m.handleDetailsKey(key)
	case config.PageSettings:
		return m.handleSettingsKey(key)
	case config.PageHome:
		if key == "esc" {
			m.activePage = config.PageWaves
		}
	}
	return nil
}

func (m *model) toggleLogger() tea.Cmd {
	m.logEnabled = !m.logEnabled
	if m.logEnabled {
		if m.w > 0 {
			m.logViewport.Width = m.w - 6
		}
		m.logReady = false
		m.saveConfig()
		return tea.Batch(initLogViewport(), m.logSpinner.Tick)
	}
	// Clear logs and de-initialize when disabling
	if m.logBuffer != nil {
		m.logBuffer.Reset()
	}
	m.logSeen = 0
	m.logger = nil
	m.logReady = false
	m.setDomainLoggers()
	m.saveConfig()
	return nil
}

func (m *model) handleWavesKey(key string) tea.Cmd {
	n := m.store.Len()
	switch key {
	case "up", "k":
		if m.selectedWave > 0 {
			m.selectedWave--
		}
	case "down", "j":
		if m.selectedWave < n-1 {
			m.selectedWave++
		}
	case "home", "g":
		m.selectedWave = 0
	case "end", "G":
		m.selectedWave = max(0, n-1)
	case "enter":
		return m.openDetails(m.selectedWave)
	case "w":
		return m.startCompose()
	case "c":
		return m.startConnect()
	case "d":
		m.disconnect()
	case "a":
		return m.openAccountPopup()
	case "p":
		if m.pending().State != submit.Idle {
			m.showTxPanel = true
		}
	case "r":
		if m.gateway != nil && m.store.Seeded() {
			m.addLog("info", "Refreshing waves…")
			return catchUp(m.ctx, m.gateway, m.catchUpFrom())
		}
	case "s":
		m.activePage = config.PageSettings
	case "h":
		m.activePage = config.PageHome
		m.homeForm = home.CreateForm(m.session.Session().Connected())
	case "esc":
		return m.quit()
	}
	return nil
}

func (m *model) openDetails(idx int) tea.Cmd {
	waves := m.store.All()
	if idx < 0 || idx >= len(waves) {
		return nil
	}
	m.selectedWave = idx
	m.activePage = config.PageDetails
	waver := waves[idx].Waver
	if _, ok := m.ensNames[waver]; !ok && m.ethClient != nil {
		return lookupENS(m.ethClient, waver)
	}
	return nil
}

func (m *model) handleDetailsKey(key string) tea.Cmd {
	waves := m.store.All()
	if m.selectedWave >= len(waves) {
		m.activePage = config.PageWaves
		return nil
	}
	w := waves[m.selectedWave]
	switch key {
	case "esc", "backspace":
		m.activePage = config.PageWaves
	case "up", "k":
		if m.selectedWave > 0 {
			return m.openDetails(m.selectedWave - 1)
		}
	case "down", "j":
		return m.openDetails(m.selectedWave + 1)
	case "c":
		m.addLog("info", "Copied waver address to clipboard")
		return copyToClipboard(w.Waver.Hex(), "address")
	case "t":
		if w.TxHash != (common.Hash{}) {
			m.addLog("info", "Copied wave transaction link to clipboard")
			return copyToClipboard(m.explorer.TxURL(w.TxHash), "link")
		}
	}
	return nil
}

func (m *model) handleSettingsKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		if m.selectedNetIdx > 0 {
			m.selectedNetIdx--
		}
	case "down", "j":
		if m.selectedNetIdx < len(m.cfg.Networks)-1 {
			m.selectedNetIdx++
		}
	case "enter", " ":
		return m.activateNetwork(m.selectedNetIdx)
	case "a":
		m.settingsMode = "add"
		m.createAddNetworkForm()
	case "e":
		if len(m.cfg.Networks) > 0 {
			m.settingsMode = "edit"
			m.createEditNetworkForm(m.selectedNetIdx)
		}
	case "d":
		if m.selectedNetIdx >= 0 && m.selectedNetIdx < len(m.cfg.Networks) {
			m.showNetDeleteDialog = true
			m.deleteNetDialogIdx = m.selectedNetIdx
			m.deleteNetDialogYesSelected = false
		}
	case "h":
		m.activePage = config.PageHome
		m.homeForm = home.CreateForm(m.session.Session().Connected())
	case "esc":
		m.activePage = config.PageWaves
	}
	return nil
}

// pending returns the submission snapshot, Idle before the node is connected
func (m *model) pending() submit.Pending {
	if m.submitter == nil {
		return submit.Pending{State: submit.Idle}
	}
	return m.submitter.Pending()
}

// -------------------- MOUSE --------------------

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.activePage == config.PageWaves && m.selectedWave > 0 {
			m.selectedWave--
		}
		return nil
	case tea.MouseButtonWheelDown:
		if m.activePage == config.PageWaves && m.selectedWave < m.store.Len()-1 {
			m.selectedWave++
		}
		return nil
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	if m.modalErr != nil || m.prizeNotice != "" || m.prompt != nil {
		return nil
	}

	// Click anywhere on the tx panel copies the link
	if m.showTxPanel {
		if p := m.pending(); p.Hash != nil {
			m.addLog("info", "Copied transaction link to clipboard")
			return copyToClipboard(m.explorer.TxURL(*p.Hash), "tx")
		}
		return nil
	}

	now := time.Now()
	double := now.Sub(m.lastClickTime) < 500*time.Millisecond &&
		m.lastClickX == msg.X && m.lastClickY == msg.Y
	m.lastClickTime = now
	m.lastClickX = msg.X
	m.lastClickY = msg.Y

	// Double-click on the header address opens the account list
	if !m.showAccountListPopup && m.headerAddrWidth > 0 && msg.Y == m.headerAddrY &&
		msg.X >= m.headerAddrX && msg.X < m.headerAddrX+m.headerAddrWidth {
		if double {
			return m.openAccountPopup()
		}
		return nil
	}

	for _, area := range m.clickableAreas {
		if !area.Contains(msg.X, msg.Y) {
			continue
		}
		m.addLog("debug", fmt.Sprintf("Click matched item %d at (%d,%d)", area.Index, msg.X, msg.Y))

		if m.showAccountListPopup {
			m.accountListSelectedIdx = area.Index
			if double {
				accounts := m.accountList()
				if area.Index < len(accounts) {
					m.showAccountListPopup = false
					return m.selectAccount(accounts[area.Index].Address)
				}
			}
			return nil
		}

		if m.activePage == config.PageWaves {
			m.selectedWave = area.Index
			if double {
				return m.openDetails(area.Index)
			}
		}
		return nil
	}
	return nil
}
