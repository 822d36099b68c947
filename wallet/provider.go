package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Provider is the wallet the session talks to. It plays the role of an
// injected browser wallet: it owns the accounts, decides which ones the app
// may see and pushes account and network changes.
type Provider interface {
	// Accounts returns the accounts already authorized for this app, the
	// selected one first. It never prompts.
	Accounts(ctx context.Context) ([]common.Address, error)

	// RequestAccounts asks the user to authorize an account. A declined
	// prompt yields errs.ErrUserRejected.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// ChainID returns the network the wallet sends transactions to.
	ChainID(ctx context.Context) (*big.Int, error)

	// SubscribeEvents delivers account and network changes to ch.
	SubscribeEvents(ch chan<- Event) event.Subscription
}

// EventKind distinguishes wallet-emitted changes.
type EventKind int

const (
	AccountsChanged EventKind = iota
	ChainChanged
)

func (k EventKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	default:
		return "unknown"
	}
}

// Event is a wallet-initiated change.
type Event struct {
	Kind     EventKind
	Accounts []common.Address // AccountsChanged
	ChainID  *big.Int         // ChainChanged
}

// Prompter asks the user to approve wallet requests. Implementations block
// until the user answers or ctx is done and return errs.ErrUserRejected when
// the user declines.
type Prompter interface {
	AuthorizeAccount(ctx context.Context, candidates []common.Address) (common.Address, error)
	ApproveTransaction(ctx context.Context, req SignRequest) (passphrase string, err error)
}

// SignRequest describes a transaction waiting for the user's signature.
type SignRequest struct {
	From    common.Address
	Tx      *types.Transaction
	ChainID *big.Int
}
