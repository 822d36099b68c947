package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/errs"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"
	"wave-portal-tui/submit"
	"wave-portal-tui/wallet"
	"wave-portal-tui/wavelog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// errNoReadRPC is reported when neither a read endpoint nor an Alchemy key is set
var errNoReadRPC = fmt.Errorf("no read RPC configured, set %s or %s: %w", config.EnvRPCURL, config.EnvAlchemyKey, errs.ErrNetwork)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = time.Minute

	// readRPCNetwork names the read endpoint when the wallet sends through it
	readRPCNetwork = "Read RPC"
)

// -------------------- MODEL --------------------

// model represents the application state following The Elm Architecture
type model struct {
	w, h int
	now  time.Time

	activePage config.Page

	cfg        config.Config
	configPath string

	// app lifetime; cancelled on quit
	ctx    context.Context
	cancel context.CancelFunc

	// background goroutines push here, waitForEvent drains it
	bus chan tea.Msg

	// read-side chain connection
	rpcURL        string
	ethClient     *rpc.Client
	rpcChainID    *big.Int
	rpcConnected  bool
	rpcConnecting bool
	gateway       *rpc.Gateway
	explorer      rpc.Explorer

	// live subscriptions by event name
	subs      map[string]*rpc.Subscription
	backoff   map[string]time.Duration
	lastBlock uint64
	history   bool // historical query issued

	// wave log
	store        *wavelog.Store
	selectedWave int

	// wallet
	keystore      *wallet.Keystore
	session       *wallet.Manager
	walletEvents  <-chan wallet.Event
	stopWallet    func()
	connecting    bool // explicit connect in flight
	walletNetwork string
	switching     bool

	// account balance
	balance        rpc.AccountBalance
	balanceLoading bool

	// reverse ENS cache, "" when the lookup found nothing
	ensNames map[common.Address]string

	// compose and submission
	submitter   *submit.Submitter
	composing   bool
	composeForm *huh.Form
	showTxPanel bool

	// blocking error modal and prize popup
	modalErr    error
	prizeNotice string

	// pending wallet prompt
	prompt     *promptMsg
	promptForm *huh.Form

	// clipboard feedback
	copiedMsg       string
	copiedMsgTime   time.Time
	txCopiedMsg     string
	txCopiedMsgTime time.Time

	// settings state
	settingsMode   string // "list", "add", "edit"
	selectedNetIdx int
	form           *huh.Form

	// network delete confirmation dialog
	showNetDeleteDialog        bool
	deleteNetDialogIdx         int
	deleteNetDialogYesSelected bool

	// home form
	homeForm *huh.Form

	// Account list popup (shown on 'a' or double-click of the header address)
	showAccountListPopup   bool
	accountListSelectedIdx int
	accountForm            *huh.Form
	headerAddrX            int
	headerAddrY            int
	headerAddrWidth        int

	// Double-click detection
	lastClickTime time.Time
	lastClickX    int
	lastClickY    int

	// clickable areas for mouse support
	clickableAreas []config.ClickableArea

	spin spinner.Model

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *syncBuffer
	logSeen     int
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// options carries what main builds before the model exists
type options struct {
	cfg        config.Config
	configPath string
	keystore   *wallet.Keystore // nil when no keystore is configured
	session    *wallet.Manager
}

// -------------------- INIT --------------------

// newModel creates and initializes a new model from a loaded configuration
func newModel(o options) model {
	ctx, cancel := context.WithCancel(context.Background())

	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // Will be resized in Update on first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	events, stop := o.session.Listen()

	m := model{
		now:          time.Now(),
		activePage:   config.PageWaves,
		cfg:          o.cfg,
		configPath:   o.configPath,
		ctx:          ctx,
		cancel:       cancel,
		bus:          make(chan tea.Msg, 64),
		rpcURL:       o.cfg.RPCURL,
		explorer:     rpc.Explorer{BaseURL: o.cfg.Contract.Explorer},
		subs:         make(map[string]*rpc.Subscription),
		backoff:      make(map[string]time.Duration),
		store:        wavelog.NewStore(),
		keystore:     o.keystore,
		session:      o.session,
		walletEvents: events,
		stopWallet:   stop,
		ensNames:     make(map[common.Address]string),
		settingsMode: "list",
		spin:         sp,
		logEnabled:   o.cfg.Logger,
		logViewport:  vp,
		logBuffer:    &syncBuffer{},
		logSpinner:   logSpin,
	}

	return m
}

// prompter returns the wallet prompter bridged onto this model's event bus
func (m *model) prompter() *tuiPrompter {
	return &tuiPrompter{bus: m.bus, done: m.ctx.Done()}
}

// authorizedHook forwards keystore authorization changes to Update so the
// config is only ever written from one place.
func (m *model) authorizedHook() func([]common.Address) {
	ctx, bus := m.ctx, m.bus
	return func(accounts []common.Address) {
		push(ctx, bus, authorizedMsg{accounts: accounts})
	}
}

// Init implements tea.Model interface and returns initial commands
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, tickNow(), waitForEvent(m.bus)}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	if m.walletEvents != nil {
		cmds = append(cmds, waitForWalletEvent(m.walletEvents))
	}
	// connect if rpc is set
	if m.rpcURL != "" {
		cmds = append(cmds, connectRPC(m.rpcURL, m.cfg.Limits.RequestTimeout()))
	} else {
		cmds = append(cmds, func() tea.Msg {
			return rpcConnectedMsg{err: errNoReadRPC}
		})
	}
	if m.keystore != nil {
		if name, url := m.walletTarget(); url != "" {
			cmds = append(cmds, switchWalletNetwork(m.ctx, m.keystore, name, url, true))
		} else {
			cmds = append(cmds, restoreSession(m.ctx, m.session))
		}
	}
	return tea.Batch(cmds...)
}

// walletTarget picks the network the wallet sends through: the active
// configured network, or the read endpoint when none is configured.
func (m model) walletTarget() (string, string) {
	if n, ok := m.cfg.ActiveNetwork(); ok {
		return n.Name, n.URL
	}
	if m.rpcURL != "" {
		return readRPCNetwork, m.rpcURL
	}
	return "", ""
}

// teardown unsubscribes every live listener and releases the wallet. Safe to
// call more than once.
func (m *model) teardown() {
	m.cancel()
	for event, sub := range m.subs {
		sub.Unsubscribe()
		delete(m.subs, event)
	}
	if m.stopWallet != nil {
		m.stopWallet()
		m.stopWallet = nil
	}
	if m.ethClient != nil {
		m.ethClient.Close()
		m.ethClient = nil
	}
}
