package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"wave-portal-tui/errs"
)

// ErrSubscriptionClosed is reported when the transport ends a subscription
// without giving a reason.
var ErrSubscriptionClosed = errors.New("subscription closed by transport")

// Mode tells how a subscription receives logs.
type Mode string

const (
	ModeStream Mode = "stream" // eth_subscribe push
	ModePoll   Mode = "poll"   // eth_getLogs on an interval
)

// Subscription is a live listener registered with the gateway. It stays
// active until Unsubscribe is called or the transport drops it.
type Subscription struct {
	ID    string
	Event string
	Mode  Mode

	cancel context.CancelFunc
	errc   chan error
	done   chan struct{}
	once   sync.Once
}

func newSubscription(event string, cancel context.CancelFunc) *Subscription {
	return &Subscription{
		ID:     uuid.NewString(),
		Event:  event,
		cancel: cancel,
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Err delivers at most one error when the transport drops the subscription.
func (s *Subscription) Err() <-chan error {
	return s.errc
}

// Done is closed once the listener goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops the listener and waits for it to exit. Safe to call more
// than once; no callback fires after it returns.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) fail(err error) {
	select {
	case s.errc <- err:
	default:
	}
}

// watch registers handle for logs of event. Push subscriptions are preferred;
// endpoints without notification support fall back to polling.
func (g *Gateway) watch(parent context.Context, event string, handle func(types.Log)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(parent)
	sub := newSubscription(event, cancel)
	q := g.filter(event)

	logs := make(chan types.Log, 64)
	raw, err := g.backend.SubscribeFilterLogs(ctx, q, logs)
	switch {
	case err == nil:
		sub.Mode = ModeStream
		go g.stream(ctx, sub, raw, logs, handle)
	case errors.Is(err, gethrpc.ErrNotificationsUnsupported):
		headCtx, headCancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
		head, herr := g.backend.BlockNumber(headCtx)
		headCancel()
		if herr != nil {
			cancel()
			return nil, fmt.Errorf("subscribe %s: %w: %w", event, errs.ErrNetwork, herr)
		}
		sub.Mode = ModePoll
		go g.poll(ctx, sub, q, head+1, handle)
	default:
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w: %w", event, errs.ErrNetwork, err)
	}

	g.logger.Debug("subscribed", "event", event, "mode", sub.Mode, "id", sub.ID)
	return sub, nil
}

func (g *Gateway) stream(ctx context.Context, sub *Subscription, raw ethereum.Subscription, logs <-chan types.Log, handle func(types.Log)) {
	defer close(sub.done)
	defer raw.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-raw.Err():
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = ErrSubscriptionClosed
			}
			g.logger.Warn("subscription dropped", "event", sub.Event, "err", err)
			sub.fail(fmt.Errorf("%s subscription: %w: %w", sub.Event, errs.ErrNetwork, err))
			return
		case l := <-logs:
			if l.Removed || ctx.Err() != nil {
				continue
			}
			handle(l)
		}
	}
}

// poll fetches logs in [from, head] every PollInterval. A failed round is
// logged and retried on the next tick.
func (g *Gateway) poll(ctx context.Context, sub *Subscription, q ethereum.FilterQuery, from uint64, handle func(types.Log)) {
	defer close(sub.done)

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := g.pollOnce(ctx, q, from, handle)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Warn("poll failed", "event", sub.Event, "from", from, "err", err)
			continue
		}
		from = next
	}
}

func (g *Gateway) pollOnce(parent context.Context, q ethereum.FilterQuery, from uint64, handle func(types.Log)) (uint64, error) {
	ctx, cancel := context.WithTimeout(parent, g.cfg.RequestTimeout)
	defer cancel()

	head, err := g.backend.BlockNumber(ctx)
	if err != nil {
		return from, err
	}
	if from > head {
		return from, nil
	}

	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(head)
	logs, err := g.backend.FilterLogs(ctx, q)
	if err != nil {
		return from, err
	}
	for _, l := range logs {
		if parent.Err() != nil {
			return from, parent.Err()
		}
		if !l.Removed {
			handle(l)
		}
	}
	return head + 1, nil
}
