package main

import (
	"context"
	"fmt"

	"wave-portal-tui/errs"
	"wave-portal-tui/wallet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- WALLET PROMPTS --------------------

// tuiPrompter answers keystore prompts through huh forms. It runs on the
// keystore's goroutine, hands the question to Update over the event bus and
// blocks until the form is answered or ctx ends.
type tuiPrompter struct {
	bus  chan<- tea.Msg
	done <-chan struct{}
}

var _ wallet.Prompter = (*tuiPrompter)(nil)

func (p *tuiPrompter) AuthorizeAccount(ctx context.Context, candidates []common.Address) (common.Address, error) {
	r := p.ask(ctx, promptMsg{kind: promptAuthorize, candidates: candidates})
	return r.account, r.err
}

func (p *tuiPrompter) ApproveTransaction(ctx context.Context, req wallet.SignRequest) (string, error) {
	r := p.ask(ctx, promptMsg{kind: promptApprove, req: req})
	return r.passphrase, r.err
}

func (p *tuiPrompter) ask(ctx context.Context, msg promptMsg) promptReply {
	msg.reply = make(chan promptReply, 1)

	select {
	case p.bus <- busMsg{msg: msg}:
	case <-ctx.Done():
		return promptReply{err: fmt.Errorf("%w: %w", errs.ErrUserRejected, ctx.Err())}
	case <-p.done:
		return promptReply{err: errs.ErrUserRejected}
	}

	select {
	case r := <-msg.reply:
		return r
	case <-ctx.Done():
		return promptReply{err: fmt.Errorf("%w: %w", errs.ErrUserRejected, ctx.Err())}
	case <-p.done:
		return promptReply{err: errs.ErrUserRejected}
	}
}
