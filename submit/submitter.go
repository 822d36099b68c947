// Package submit drives a single wave transaction from the compose box to a
// mined receipt.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"wave-portal-tui/errs"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"
	"wave-portal-tui/wavelog"
)

// State of the pending transaction.
type State int

const (
	Idle State = iota
	Submitting
	AwaitingConfirmation
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Submitting:
		return "Submitting"
	case AwaitingConfirmation:
		return "AwaitingConfirmation"
	case Confirmed:
		return "Confirmed"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s ends a submission.
func (s State) Terminal() bool { return s == Confirmed || s == Failed }

// Pending is a snapshot of the submission. Hash is set once the wallet has
// broadcast the transaction.
type Pending struct {
	Hash    *common.Hash
	State   State
	Err     error
	Message string
	Receipt *types.Receipt
}

// InFlight reports whether a submission is waiting on the wallet or the chain.
func (p Pending) InFlight() bool {
	return p.State == Submitting || p.State == AwaitingConfirmation
}

// Chain is the part of the gateway the submitter uses.
type Chain interface {
	SubmitWave(ctx context.Context, signer rpc.Signer, from common.Address, message string) (*rpc.TxHandle, error)
	AwaitConfirmation(ctx context.Context, h *rpc.TxHandle) (*types.Receipt, error)
}

// Sessions exposes the current wallet session.
type Sessions interface {
	Session() wallet.Session
}

// Config configures a Submitter.
type Config struct {
	Chain    Chain
	Sessions Sessions
	Signer   rpc.Signer

	// MaxLength caps the message length in runes; zero means no cap.
	MaxLength int
	Logger    *log.Logger
}

// Submitter owns the single pending transaction.
type Submitter struct {
	chain     Chain
	sessions  Sessions
	signer    rpc.Signer
	maxLength int
	logger    *log.Logger

	mu      sync.Mutex
	pending Pending
	from    common.Address
}

// New creates an idle submitter.
func New(cfg Config) *Submitter {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Submitter{
		chain:     cfg.Chain,
		sessions:  cfg.Sessions,
		signer:    cfg.Signer,
		maxLength: cfg.MaxLength,
		logger:    cfg.Logger,
	}
}

// SetLogger replaces the submitter logger.
func (s *Submitter) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// Pending returns a copy of the current submission.
func (s *Submitter) Pending() Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	if p.Hash != nil {
		h := *p.Hash
		p.Hash = &h
	}
	return p
}

// Submit runs one submission end to end and returns the final snapshot.
func (s *Submitter) Submit(ctx context.Context, message string) (Pending, error) {
	if err := s.Begin(message); err != nil {
		return s.Pending(), err
	}
	h, err := s.Send(ctx)
	if err != nil {
		s.Finish(nil, err)
		return s.Pending(), err
	}
	s.Accepted(h)
	receipt, err := s.Await(ctx, h)
	s.Finish(receipt, err)
	return s.Pending(), err
}

// Begin validates message against the session and moves to Submitting.
// The message is sent as typed; only blank messages are rejected. Sessions on
// the wrong chain are refused. Validation failures leave the state untouched
// and never reach the chain.
func (s *Submitter) Begin(message string) error {
	session := s.sessions.Session()
	if !session.Connected() {
		return errs.ErrNotConnected
	}
	if session.Warning != nil {
		return session.Warning
	}

	trimmed := strings.TrimSpace(message)
	switch {
	case trimmed == "":
		return errs.ErrEmptyMessage
	case !utf8.ValidString(message):
		return errs.ErrInvalidMessage
	case s.maxLength > 0 && utf8.RuneCountInString(message) > s.maxLength:
		return fmt.Errorf("%w: %d characters, limit %d", errs.ErrMessageTooLong, utf8.RuneCountInString(message), s.maxLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.InFlight() {
		return errs.ErrBusy
	}
	s.pending = Pending{State: Submitting, Message: message}
	s.from = *session.Account
	s.logger.Info("submitting wave", "from", s.from.Hex(), "length", len(message))
	return nil
}

// Send hands the message to the wallet for signing and broadcast.
func (s *Submitter) Send(ctx context.Context) (*rpc.TxHandle, error) {
	s.mu.Lock()
	if s.pending.State != Submitting {
		s.mu.Unlock()
		return nil, fmt.Errorf("send: submission is %s", s.pending.State)
	}
	from, msg := s.from, s.pending.Message
	s.mu.Unlock()

	return s.chain.SubmitWave(ctx, s.signer, from, msg)
}

// Accepted records the broadcast transaction and moves to AwaitingConfirmation.
func (s *Submitter) Accepted(h *rpc.TxHandle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.State != Submitting {
		return
	}
	hash := h.Hash
	s.pending.Hash = &hash
	s.pending.State = AwaitingConfirmation
	s.logger.Info("awaiting confirmation", "tx", hash.Hex())
}

// Await blocks until the transaction is mined or fails.
func (s *Submitter) Await(ctx context.Context, h *rpc.TxHandle) (*types.Receipt, error) {
	return s.chain.AwaitConfirmation(ctx, h)
}

// Finish moves an in-flight submission to Confirmed or Failed.
func (s *Submitter) Finish(receipt *types.Receipt, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending.InFlight() {
		return
	}
	s.pending.Receipt = receipt
	if err != nil {
		s.pending.State = Failed
		s.pending.Err = err
		switch {
		case errors.Is(err, errs.ErrSubmissionRejected), errors.Is(err, errs.ErrUserRejected):
			s.logger.Warn("wave rejected in wallet", "err", err)
		default:
			s.logger.Error("wave failed", "err", err)
		}
		return
	}
	s.pending.State = Confirmed
	s.pending.Err = nil
	if receipt != nil {
		s.logger.Info("wave mined", "tx", receipt.TxHash.Hex(), "block", receipt.BlockNumber, "gas", receipt.GasUsed)
	}
}

// Acknowledge clears a finished submission back to Idle.
func (s *Submitter) Acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.State.Terminal() {
		s.pending = Pending{State: Idle}
	}
}

// PrizeNotice returns the congratulation text when the connected account won.
func PrizeNotice(prize wavelog.Prize, session wallet.Session) (string, bool) {
	if !session.Connected() || *session.Account != prize.Winner {
		return "", false
	}
	return fmt.Sprintf("Congrats! You just won %s ether for waving. Check your wallet balance :)", FormatEther(prize.Amount)), true
}

// FormatEther renders a wei amount in ether without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetPrec(256).SetInt(wei)
	f.Quo(f, new(big.Float).SetInt(big.NewInt(params.Ether)))
	out := f.Text('f', 18)
	out = strings.TrimRight(out, "0")
	return strings.TrimSuffix(out, ".")
}
