// Package wallet holds the wallet session state machine and the keystore
// wallet that backs it.
//
// Session states:
//
//	Disconnected -> Connecting -> Connected
//	Connected    -> Disconnected   (Disconnect, or the wallet reports no accounts)
//	any          -> Error          (no wallet, or the user rejects the prompt)
//	Error        -> Disconnected   (Acknowledge)
//
// A silent restore at startup goes straight from Disconnected to Connected.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/errs"
)

// ErrConnectPending is returned by BeginConnect while a connect is in flight.
var ErrConnectPending = errors.New("connect already in progress")

// Status is the connection state of the session.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusError:
		return "Error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Session is a snapshot of the wallet session. Account is set iff Status is
// StatusConnected.
type Session struct {
	Account *common.Address
	ChainID *big.Int
	Status  Status
	Err     error // reason for StatusError
	Warning error // non-fatal advisory, wraps errs.ErrUnsupportedNetwork
}

// Connected reports whether the session has an active account.
func (s Session) Connected() bool {
	return s.Status == StatusConnected && s.Account != nil
}

// ConnectResult carries what the wallet answered to a connect or restore.
type ConnectResult struct {
	Accounts []common.Address
	ChainID  *big.Int
	Err      error
}

// Manager owns the single wallet session. All state changes go through its
// methods.
type Manager struct {
	mu        sync.Mutex
	provider  Provider
	supported *big.Int
	session   Session
	logger    *log.Logger
}

// NewManager creates a disconnected session manager. A nil provider means no
// wallet is installed.
func NewManager(p Provider, supportedChainID *big.Int, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		provider:  p,
		supported: supportedChainID,
		session:   Session{Status: StatusDisconnected},
		logger:    logger,
	}
}

// SetLogger replaces the manager logger.
func (m *Manager) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = l
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// SupportedChainID returns the only chain waves may be sent to.
func (m *Manager) SupportedChainID() *big.Int {
	return new(big.Int).Set(m.supported)
}

// Connect runs the whole user-initiated connect flow.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.BeginConnect(); err != nil {
		return err
	}
	return m.FinishConnect(m.RequestAccess(ctx))
}

// BeginConnect moves the session to Connecting. Without a wallet the session
// goes to Error(NoProvider) instead. Calling it while connected is a no-op.
func (m *Manager) BeginConnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.provider == nil:
		m.session.Status = StatusError
		m.session.Err = errs.ErrNoProvider
		m.session.Account = nil
		m.logger.Error("connect failed", "err", errs.ErrNoProvider)
		return errs.ErrNoProvider
	case m.session.Status == StatusConnecting:
		return ErrConnectPending
	case m.session.Status == StatusConnected:
		return nil
	}

	m.session.Status = StatusConnecting
	m.session.Err = nil
	m.session.Account = nil
	m.logger.Info("requesting account access")
	return nil
}

// RequestAccess prompts the wallet for an account. It does not touch the
// session and may run off the UI loop.
func (m *Manager) RequestAccess(ctx context.Context) ConnectResult {
	if m.provider == nil {
		return ConnectResult{Err: errs.ErrNoProvider}
	}
	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return ConnectResult{Err: err}
	}
	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		return ConnectResult{Accounts: accounts, Err: err}
	}
	return ConnectResult{Accounts: accounts, ChainID: chainID}
}

// FinishConnect applies the wallet's answer to a connect request.
func (m *Manager) FinishConnect(res ConnectResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := res.Err
	if err == nil && len(res.Accounts) == 0 {
		err = fmt.Errorf("wallet returned no accounts: %w", errs.ErrUserRejected)
	}
	if err != nil {
		m.session.Status = StatusError
		m.session.Err = err
		m.session.Account = nil
		m.logger.Error("connect failed", "err", err)
		return err
	}

	m.setConnectedLocked(res.Accounts[0], res.ChainID)
	m.logger.Info("wallet connected", "account", res.Accounts[0].Hex(), "chain", res.ChainID)
	return nil
}

// Restore silently asks the wallet for already-authorized accounts. It never
// prompts and does not touch the session.
func (m *Manager) Restore(ctx context.Context) ConnectResult {
	if m.provider == nil {
		return ConnectResult{Err: errs.ErrNoProvider}
	}
	accounts, err := m.provider.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		return ConnectResult{Accounts: accounts, Err: err}
	}
	chainID, err := m.provider.ChainID(ctx)
	return ConnectResult{Accounts: accounts, ChainID: chainID, Err: err}
}

// FinishRestore connects straight from Disconnected when the wallet already
// authorized an account, skipping Connecting. Failures leave the session
// untouched. It reports whether the session is now connected.
func (m *Manager) FinishRestore(res ConnectResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Status != StatusDisconnected {
		return m.session.Status == StatusConnected
	}
	if res.Err != nil || len(res.Accounts) == 0 {
		m.logger.Debug("no authorized account to restore", "err", res.Err)
		return false
	}

	m.setConnectedLocked(res.Accounts[0], res.ChainID)
	m.logger.Info("wallet restored", "account", res.Accounts[0].Hex())
	return true
}

// Disconnect ends the session and clears the account.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.Status = StatusDisconnected
	m.session.Account = nil
	m.session.Err = nil
	m.logger.Info("wallet disconnected")
}

// Acknowledge clears an error state back to Disconnected.
func (m *Manager) Acknowledge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Status != StatusError {
		return
	}
	m.session.Status = StatusDisconnected
	m.session.Err = nil
	m.session.Account = nil
}

// Apply dispatches a wallet event.
func (m *Manager) Apply(ev Event) {
	switch ev.Kind {
	case AccountsChanged:
		m.HandleAccountsChanged(ev.Accounts)
	case ChainChanged:
		m.HandleChainChanged(ev.ChainID)
	}
}

// HandleAccountsChanged follows a wallet-side account switch. An empty list
// disconnects; otherwise the first account becomes active and the session
// stays connected. Ignored unless connected.
func (m *Manager) HandleAccountsChanged(accounts []common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Status != StatusConnected {
		m.logger.Debug("ignoring accountsChanged", "status", m.session.Status)
		return
	}
	if len(accounts) == 0 {
		m.session.Status = StatusDisconnected
		m.session.Account = nil
		m.logger.Info("wallet reported no accounts, disconnected")
		return
	}
	acct := accounts[0]
	m.session.Account = &acct
	m.logger.Info("account changed", "account", acct.Hex())
}

// HandleChainChanged records the wallet's network. A network other than the
// supported one sets Session.Warning but never changes the status or account.
// It reports whether a warning is active afterwards.
func (m *Manager) HandleChainChanged(chainID *big.Int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.ChainID = chainID
	m.checkChainLocked()
	if m.session.Warning != nil {
		m.logger.Warn("wallet on unsupported network", "chain", chainID, "want", m.supported)
	}
	return m.session.Warning != nil
}

// Listen subscribes to wallet events. The returned func unsubscribes and must
// be called on teardown.
func (m *Manager) Listen() (<-chan Event, func()) {
	if m.provider == nil {
		return nil, func() {}
	}
	ch := make(chan Event, 16)
	sub := m.provider.SubscribeEvents(ch)
	return ch, sub.Unsubscribe
}

func (m *Manager) setConnectedLocked(account common.Address, chainID *big.Int) {
	m.session.Status = StatusConnected
	m.session.Account = &account
	m.session.Err = nil
	if chainID != nil {
		m.session.ChainID = chainID
	}
	m.checkChainLocked()
}

func (m *Manager) checkChainLocked() {
	id := m.session.ChainID
	if id == nil || m.supported == nil || id.Cmp(m.supported) == 0 {
		m.session.Warning = nil
		return
	}
	m.session.Warning = fmt.Errorf("wallet is on chain %s, waves go to chain %s: %w",
		id, m.supported, errs.ErrUnsupportedNetwork)
}

func (s Session) clone() Session {
	out := s
	if s.Account != nil {
		acct := *s.Account
		out.Account = &acct
	}
	if s.ChainID != nil {
		out.ChainID = new(big.Int).Set(s.ChainID)
	}
	return out
}
