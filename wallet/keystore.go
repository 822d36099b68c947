package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"wave-portal-tui/errs"
)

// ChainBackend is the node the keystore wallet signs for and broadcasts to.
type ChainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Dialer opens a ChainBackend for a network URL.
type Dialer func(ctx context.Context, url string) (ChainBackend, error)

// DialEthclient is the default Dialer.
func DialEthclient(ctx context.Context, url string) (ChainBackend, error) {
	return ethclient.DialContext(ctx, url)
}

// KeystoreConfig configures a Keystore wallet.
type KeystoreConfig struct {
	Dir        string
	Authorized []common.Address
	Prompter   Prompter
	Dial       Dialer

	// OnAuthorize is called with the authorized accounts whenever they change.
	OnAuthorize func([]common.Address)

	RequestTimeout time.Duration
	Logger         *log.Logger

	// Scrypt parameters for NewAccount. Zero means keystore.StandardScryptN/P.
	ScryptN, ScryptP int
}

// Keystore is a Provider backed by an encrypted go-ethereum keystore
// directory. The user authorizes accounts through the Prompter and
// approves every transaction by entering the account passphrase.
type Keystore struct {
	ks       *keystore.KeyStore
	prompter Prompter
	dial     Dialer
	timeout  time.Duration
	logger   *log.Logger

	onAuthorize func([]common.Address)

	mu         sync.Mutex
	backend    ChainBackend
	networkURL string
	chainID    *big.Int
	authorized []common.Address
	last       []common.Address

	feed event.FeedOf[Event]
	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewKeystore opens the keystore directory. An empty directory path means no
// wallet is available.
func NewKeystore(cfg KeystoreConfig) (*Keystore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("no keystore directory: %w", errs.ErrNoProvider)
	}
	if cfg.Dial == nil {
		cfg.Dial = DialEthclient
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.ScryptN == 0 || cfg.ScryptP == 0 {
		cfg.ScryptN, cfg.ScryptP = keystore.StandardScryptN, keystore.StandardScryptP
	}

	k := &Keystore{
		ks:          keystore.NewKeyStore(cfg.Dir, cfg.ScryptN, cfg.ScryptP),
		prompter:    cfg.Prompter,
		dial:        cfg.Dial,
		timeout:     cfg.RequestTimeout,
		logger:      cfg.Logger,
		onAuthorize: cfg.OnAuthorize,
		authorized:  slices.Clone(cfg.Authorized),
		quit:        make(chan struct{}),
	}
	k.last = k.present()

	k.wg.Add(1)
	go k.watchWallets()
	return k, nil
}

// Close stops watching the keystore directory.
func (k *Keystore) Close() {
	k.once.Do(func() { close(k.quit) })
	k.wg.Wait()
}

// SetPrompter installs the prompter used for authorization and signing.
func (k *Keystore) SetPrompter(p Prompter) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.prompter = p
}

// SetLogger replaces the wallet logger.
func (k *Keystore) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = l
}

// -------------------- Accounts --------------------

// All returns every account in the keystore, authorized or not.
func (k *Keystore) All() []common.Address {
	accts := k.ks.Accounts()
	out := make([]common.Address, len(accts))
	for i, a := range accts {
		out[i] = a.Address
	}
	return out
}

// NewAccount creates a new encrypted key in the keystore.
func (k *Keystore) NewAccount(passphrase string) (common.Address, error) {
	acct, err := k.ks.NewAccount(passphrase)
	if err != nil {
		return common.Address{}, err
	}
	k.logger.Info("created account", "address", acct.Address.Hex())
	return acct.Address, nil
}

// Accounts implements Provider.
func (k *Keystore) Accounts(ctx context.Context) ([]common.Address, error) {
	return k.present(), nil
}

// RequestAccounts implements Provider. The prompter picks one keystore
// account, which becomes the selected authorized account.
func (k *Keystore) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	k.mu.Lock()
	prompter := k.prompter
	k.mu.Unlock()

	if prompter == nil {
		return nil, fmt.Errorf("no prompter attached: %w", errs.ErrNoProvider)
	}
	candidates := k.All()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("keystore has no accounts: %w", errs.ErrNoProvider)
	}

	addr, err := prompter.AuthorizeAccount(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if !k.ks.HasAddress(addr) {
		return nil, fmt.Errorf("account %s not in keystore: %w", addr.Hex(), errs.ErrUserRejected)
	}

	k.authorize(addr)
	k.logger.Info("account authorized", "address", addr.Hex())
	return k.present(), nil
}

// SelectAccount makes addr the selected account and emits accountsChanged.
func (k *Keystore) SelectAccount(addr common.Address) error {
	if !k.ks.HasAddress(addr) {
		return fmt.Errorf("account %s not in keystore", addr.Hex())
	}
	k.authorize(addr)
	k.emitAccounts()
	return nil
}

// Revoke forgets every authorized account and emits an empty accountsChanged.
func (k *Keystore) Revoke() {
	k.mu.Lock()
	k.authorized = nil
	hook := k.onAuthorize
	k.mu.Unlock()

	if hook != nil {
		hook(nil)
	}
	k.logger.Info("revoked account access")
	k.emitAccounts()
}

func (k *Keystore) authorize(addr common.Address) {
	k.mu.Lock()
	list := slices.DeleteFunc(k.authorized, func(a common.Address) bool { return a == addr })
	k.authorized = append([]common.Address{addr}, list...)
	snapshot := slices.Clone(k.authorized)
	hook := k.onAuthorize
	k.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

// present returns authorized accounts whose keys are still in the keystore.
func (k *Keystore) present() []common.Address {
	k.mu.Lock()
	authorized := slices.Clone(k.authorized)
	k.mu.Unlock()

	out := make([]common.Address, 0, len(authorized))
	for _, a := range authorized {
		if k.ks.HasAddress(a) {
			out = append(out, a)
		}
	}
	return out
}

func (k *Keystore) emitAccounts() {
	accts := k.present()
	k.mu.Lock()
	k.last = accts
	k.mu.Unlock()
	k.feed.Send(Event{Kind: AccountsChanged, Accounts: accts})
}

// watchWallets turns key files appearing or disappearing into accountsChanged.
func (k *Keystore) watchWallets() {
	defer k.wg.Done()

	events := make(chan accounts.WalletEvent, 8)
	sub := k.ks.Subscribe(events)
	defer sub.Unsubscribe()

	for {
		select {
		case <-events:
			accts := k.present()
			k.mu.Lock()
			changed := !slices.Equal(accts, k.last)
			k.mu.Unlock()
			if changed {
				k.logger.Debug("keystore contents changed", "authorized", len(accts))
				k.emitAccounts()
			}
		case <-sub.Err():
			return
		case <-k.quit:
			return
		}
	}
}

// -------------------- Network --------------------

// SwitchNetwork points the wallet at a new node and emits chainChanged.
func (k *Keystore) SwitchNetwork(ctx context.Context, url string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	backend, err := k.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", errs.ErrNetwork, url, err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %w", errs.ErrNetwork, err)
	}

	k.mu.Lock()
	old := k.backend
	k.backend = backend
	k.networkURL = url
	k.chainID = chainID
	k.mu.Unlock()

	if c, ok := old.(interface{ Close() }); ok {
		c.Close()
	}
	k.logger.Info("wallet network switched", "url", url, "chain", chainID)
	k.feed.Send(Event{Kind: ChainChanged, ChainID: new(big.Int).Set(chainID)})
	return chainID, nil
}

// NetworkURL returns the node the wallet currently uses.
func (k *Keystore) NetworkURL() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.networkURL
}

// ChainID implements Provider.
func (k *Keystore) ChainID(ctx context.Context) (*big.Int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.chainID == nil {
		return nil, fmt.Errorf("%w: wallet has no network selected", errs.ErrNetwork)
	}
	return new(big.Int).Set(k.chainID), nil
}

// SubscribeEvents implements Provider.
func (k *Keystore) SubscribeEvents(ch chan<- Event) event.Subscription {
	return k.feed.Subscribe(ch)
}

// -------------------- Signing --------------------

// SendTransaction fills in nonce, fees and gas, asks the user to approve,
// signs with the entered passphrase and broadcasts. It satisfies the gateway
// Signer interface.
func (k *Keystore) SendTransaction(ctx context.Context, call ethereum.CallMsg) (common.Hash, error) {
	k.mu.Lock()
	backend, chainID, prompter := k.backend, k.chainID, k.prompter
	authorized := slices.Contains(k.authorized, call.From)
	k.mu.Unlock()

	if backend == nil || chainID == nil {
		return common.Hash{}, fmt.Errorf("%w: wallet has no network selected", errs.ErrNetwork)
	}
	if prompter == nil {
		return common.Hash{}, fmt.Errorf("no prompter attached: %w", errs.ErrNoProvider)
	}
	if !authorized || !k.ks.HasAddress(call.From) {
		return common.Hash{}, fmt.Errorf("account %s is not authorized: %w", call.From.Hex(), errs.ErrUserRejected)
	}

	tx, err := k.prepare(ctx, backend, chainID, call)
	if err != nil {
		return common.Hash{}, err
	}

	passphrase, err := prompter.ApproveTransaction(ctx, SignRequest{From: call.From, Tx: tx, ChainID: chainID})
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := k.ks.SignTxWithPassphrase(accounts.Account{Address: call.From}, passphrase, tx, chainID)
	if err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return common.Hash{}, fmt.Errorf("%w: %w", errs.ErrUserRejected, err)
		}
		return common.Hash{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	if err := backend.SendTransaction(sctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%w: broadcast: %w", errs.ErrNetwork, err)
	}
	k.logger.Info("transaction broadcast", "hash", signed.Hash().Hex(), "nonce", signed.Nonce())
	return signed.Hash(), nil
}

func (k *Keystore) prepare(ctx context.Context, backend ChainBackend, chainID *big.Int, call ethereum.CallMsg) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	nonce, err := backend.PendingNonceAt(ctx, call.From)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", errs.ErrNetwork, err)
	}
	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas tip: %w", errs.ErrNetwork, err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: head: %w", errs.ErrNetwork, err)
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	} else {
		feeCap.Mul(feeCap, big.NewInt(2))
	}

	gas := call.Gas
	if gas == 0 {
		gas, err = backend.EstimateGas(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("%w: estimate gas: %w", errs.ErrNetwork, err)
		}
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        call.To,
		Value:     value,
		Data:      call.Data,
	}), nil
}
