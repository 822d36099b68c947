package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/submit"
	"wave-portal-tui/wallet"
	"wave-portal-tui/wavelog"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// connectRPC establishes the read-only RPC connection
func connectRPC(url string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		result := rpc.ConnectWithTimeout(url, timeout)
		return rpcConnectedMsg{client: result.Client, chainID: result.ChainID, err: result.Error}
	}
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// tickNow refreshes relative timestamps once a minute
func tickNow() tea.Cmd {
	return tea.Every(time.Minute, func(t time.Time) tea.Msg {
		return nowTickMsg(t)
	})
}

// waitForEvent blocks until a background goroutine pushes onto the bus
func waitForEvent(bus <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-bus
		if !ok {
			return nil
		}
		return msg
	}
}

// waitForWalletEvent blocks for the next wallet notification
func waitForWalletEvent(ch <-chan wallet.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		return walletEventMsg{ev: ev, ok: ok}
	}
}

// push delivers msg to the bus unless the app is shutting down
func push(ctx context.Context, bus chan<- tea.Msg, msg tea.Msg) {
	select {
	case bus <- busMsg{msg: msg}:
	case <-ctx.Done():
	}
}

// loadHistory runs the historical NewWave query
func loadHistory(ctx context.Context, g *rpc.Gateway) tea.Cmd {
	return func() tea.Msg {
		records, err := g.QueryHistoricalWaves(ctx)
		return historyLoadedMsg{records: records, err: err}
	}
}

// catchUp fetches waves emitted since from, oldest first
func catchUp(ctx context.Context, g *rpc.Gateway, from uint64) tea.Cmd {
	return func() tea.Msg {
		records, err := g.QueryWavesSince(ctx, from)
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].BlockNumber != records[j].BlockNumber {
				return records[i].BlockNumber < records[j].BlockNumber
			}
			return records[i].LogIndex < records[j].LogIndex
		})
		return catchUpMsg{records: records, err: err}
	}
}

// subscribe registers a live listener for event. Callbacks run on the
// gateway's goroutine and only forward onto the bus.
func subscribe(ctx context.Context, g *rpc.Gateway, bus chan<- tea.Msg, event string, resumed bool) tea.Cmd {
	return func() tea.Msg {
		var (
			sub *rpc.Subscription
			err error
		)
		switch event {
		case rpc.EventNewWave:
			sub, err = g.SubscribeWaveEvents(ctx, func(r wavelog.WaveRecord) {
				push(ctx, bus, waveEventMsg{record: r})
			})
		case rpc.EventPrizeWon:
			sub, err = g.SubscribePrizeEvents(ctx, func(p wavelog.Prize) {
				push(ctx, bus, prizeEventMsg{prize: p})
			})
		default:
			err = fmt.Errorf("unknown event %q", event)
		}
		return subscribedMsg{event: event, sub: sub, err: err, resumed: resumed}
	}
}

// watchSubscription blocks until sub is dropped by the transport. A clean
// unsubscribe yields nothing.
func watchSubscription(sub *rpc.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case err := <-sub.Err():
			return subDroppedMsg{event: sub.Event, id: sub.ID, err: err}
		case <-sub.Done():
			select {
			case err := <-sub.Err():
				return subDroppedMsg{event: sub.Event, id: sub.ID, err: err}
			default:
				return nil
			}
		}
	}
}

// resubscribeAfter schedules a new subscription attempt
func resubscribeAfter(event string, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return resubscribeMsg{event: event}
	})
}

// switchWalletNetwork points the keystore wallet at url
func switchWalletNetwork(ctx context.Context, ks *wallet.Keystore, name, url string, startup bool) tea.Cmd {
	return func() tea.Msg {
		id, err := ks.SwitchNetwork(ctx, url)
		return walletNetworkMsg{name: name, chainID: id, err: err, startup: startup}
	}
}

// restoreSession silently checks for an already-authorized account
func restoreSession(ctx context.Context, mgr *wallet.Manager) tea.Cmd {
	return func() tea.Msg {
		return restoreMsg{res: mgr.Restore(ctx)}
	}
}

// requestAccess runs the explicit connect prompt
func requestAccess(ctx context.Context, mgr *wallet.Manager) tea.Cmd {
	return func() tea.Msg {
		return connectMsg{res: mgr.RequestAccess(ctx)}
	}
}

// createAccount adds a new key to the keystore
func createAccount(ks *wallet.Keystore, passphrase string) tea.Cmd {
	return func() tea.Msg {
		addr, err := ks.NewAccount(passphrase)
		return accountCreatedMsg{address: addr, err: err}
	}
}

// sendWave hands the validated message to the wallet. The signing prompt has
// no deadline; the wallet bounds its own RPC calls.
func sendWave(ctx context.Context, s *submit.Submitter) tea.Cmd {
	return func() tea.Msg {
		h, err := s.Send(ctx)
		return waveSentMsg{handle: h, err: err}
	}
}

// awaitWave waits for the receipt of a broadcast wave
func awaitWave(ctx context.Context, s *submit.Submitter, h *rpc.TxHandle) tea.Cmd {
	return func() tea.Msg {
		receipt, err := s.Await(ctx, h)
		return waveMinedMsg{receipt: receipt, err: err}
	}
}

// loadBalance fetches the ETH balance of addr
func loadBalance(client *rpc.Client, addr common.Address, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		return balanceLoadedMsg{balance: rpc.LoadAccountBalanceWithTimeout(client, addr, timeout)}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		if err == nil {
			return clipboardCopiedMsg{what: what}
		}
		return nil
	}
}

// clearClipboard waits 2 seconds then sends a message to clear clipboard feedback
func clearClipboard() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return clearClipboardMsg{}
	})
}

// lookupENS performs reverse ENS lookup (address -> name)
func lookupENS(client *rpc.Client, address common.Address) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return ensLookupResultMsg{helpers.ENSResult{Address: address, Error: fmt.Errorf("no RPC client")}}
		}
		return ensLookupResultMsg{helpers.LookupENS(client.Client, address)}
	}
}

// -------------------- LOG BUFFER --------------------

// syncBuffer is the log panel sink. Domain loggers write to it from
// background goroutines while View reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if !m.logEnabled || !m.logReady || m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logReady || m.logBuffer == nil {
		return
	}
	// Background loggers may have written since the last refresh
	n := m.logBuffer.Len()
	if n == m.logSeen {
		return
	}
	m.logSeen = n

	m.logViewport.SetContent(m.logBuffer.String())
	m.logViewport.GotoBottom()
}

// setDomainLoggers points every component at the panel logger, or silences
// them when the panel is off.
func (m *model) setDomainLoggers() {
	l := m.logger
	if l == nil {
		l = log.New(io.Discard)
	}
	m.session.SetLogger(l)
	if m.keystore != nil {
		m.keystore.SetLogger(l)
	}
	if m.gateway != nil {
		m.gateway.SetLogger(l)
	}
	if m.submitter != nil {
		m.submitter.SetLogger(l)
	}
}

// textInputActive returns true if any text input is currently active
func (m model) textInputActive() bool {
	if m.composing && m.composeForm != nil {
		return true
	}
	if m.prompt != nil && m.promptForm != nil {
		return true
	}
	if m.accountForm != nil {
		return true
	}
	if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
		return true
	}
	return false
}
