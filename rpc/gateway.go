package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"wave-portal-tui/errs"
	"wave-portal-tui/wavelog"
)

// Backend is the part of an Ethereum RPC client the gateway needs.
// *ethclient.Client satisfies it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer sends a state-changing call on behalf of call.From.
// Declining to sign must be reported as errs.ErrUserRejected.
type Signer interface {
	SendTransaction(ctx context.Context, call ethereum.CallMsg) (common.Hash, error)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	Contract   common.Address
	StartBlock uint64 // contract deployment block
	GasLimit   uint64 // 0 lets the wallet estimate

	RequestTimeout  time.Duration
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration // log polling when the endpoint cannot push
	ReceiptInterval time.Duration

	Logger *log.Logger
}

// TxHandle identifies a submitted wave transaction.
type TxHandle struct {
	Hash common.Hash
	From common.Address
}

// Gateway is the only component talking to the RPC endpoint and the
// WavePortal contract.
type Gateway struct {
	backend Backend
	abi     abi.ABI
	cfg     GatewayConfig
	logger  *log.Logger
}

// NewGateway creates a gateway over backend.
func NewGateway(backend Backend, cfg GatewayConfig) (*Gateway, error) {
	if backend == nil {
		return nil, errors.New("gateway: nil backend")
	}
	parsed, err := ParseWavePortalABI()
	if err != nil {
		return nil, fmt.Errorf("gateway: parse abi: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 8 * time.Second
	}
	if cfg.ReceiptInterval <= 0 {
		cfg.ReceiptInterval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Gateway{backend: backend, abi: parsed, cfg: cfg, logger: logger}, nil
}

// SetLogger replaces the gateway logger.
func (g *Gateway) SetLogger(l *log.Logger) {
	if l != nil {
		g.logger = l
	}
}

// Contract returns the WavePortal address.
func (g *Gateway) Contract() common.Address {
	return g.cfg.Contract
}

// QueryHistoricalWaves returns every wave from the deployment block up to the
// head as of this call. Two calls may disagree if the head moves in between.
func (g *Gateway) QueryHistoricalWaves(ctx context.Context) ([]wavelog.WaveRecord, error) {
	return g.QueryWavesSince(ctx, g.cfg.StartBlock)
}

// QueryWavesSince returns waves from block from up to the current head.
func (g *Gateway) QueryWavesSince(ctx context.Context, from uint64) ([]wavelog.WaveRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	head, err := g.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get head block: %w: %w", errs.ErrNetwork, err)
	}
	if from > head {
		return nil, nil
	}
	return g.queryWaves(ctx, from, head)
}

// QueryWaves returns waves emitted in blocks [from, to].
func (g *Gateway) QueryWaves(ctx context.Context, from, to uint64) ([]wavelog.WaveRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()
	return g.queryWaves(ctx, from, to)
}

func (g *Gateway) queryWaves(ctx context.Context, from, to uint64) ([]wavelog.WaveRecord, error) {
	q := g.filter(EventNewWave)
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(to)

	logs, err := g.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch logs [%d, %d]: %w: %w", from, to, errs.ErrNetwork, err)
	}

	records := make([]wavelog.WaveRecord, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		r, err := DecodeWave(g.abi, l)
		if err != nil {
			g.logger.Warn("skipping undecodable wave", "tx", l.TxHash.Hex(), "err", err)
			continue
		}
		records = append(records, r)
	}
	g.logger.Debug("queried waves", "from", from, "to", to, "count", len(records))
	return records, nil
}

// SubscribeWaveEvents calls onEvent once per live NewWave log, in the order
// the transport delivers them. A dropped subscription is reported on
// Subscription.Err and is not retried here.
func (g *Gateway) SubscribeWaveEvents(ctx context.Context, onEvent func(wavelog.WaveRecord)) (*Subscription, error) {
	return g.watch(ctx, EventNewWave, func(l types.Log) {
		r, err := DecodeWave(g.abi, l)
		if err != nil {
			g.logger.Warn("skipping undecodable wave", "tx", l.TxHash.Hex(), "err", err)
			return
		}
		onEvent(r)
	})
}

// SubscribePrizeEvents calls onEvent once per live PrizeWon log.
func (g *Gateway) SubscribePrizeEvents(ctx context.Context, onEvent func(wavelog.Prize)) (*Subscription, error) {
	return g.watch(ctx, EventPrizeWon, func(l types.Log) {
		p, err := DecodePrize(g.abi, l)
		if err != nil {
			g.logger.Warn("skipping undecodable prize", "tx", l.TxHash.Hex(), "err", err)
			return
		}
		onEvent(p)
	})
}

// SubmitWave sends waveAtMe(message) through signer on behalf of from.
func (g *Gateway) SubmitWave(ctx context.Context, signer Signer, from common.Address, message string) (*TxHandle, error) {
	if signer == nil {
		return nil, errs.ErrNoProvider
	}
	data, err := g.abi.Pack(MethodWaveAtMe, message)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", MethodWaveAtMe, err)
	}

	to := g.cfg.Contract
	hash, err := signer.SendTransaction(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Gas:  g.cfg.GasLimit,
		Data: data,
	})
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrUserRejected):
		return nil, fmt.Errorf("%w: %w", errs.ErrSubmissionRejected, err)
	case errors.Is(err, errs.ErrNetwork), errors.Is(err, errs.ErrNoProvider):
		return nil, err
	default:
		return nil, fmt.Errorf("send transaction: %w: %w", errs.ErrNetwork, err)
	}

	g.logger.Info("wave submitted", "tx", hash.Hex(), "from", from.Hex())
	return &TxHandle{Hash: hash, From: from}, nil
}

// AwaitConfirmation polls for the receipt of h until it is mined, the
// confirmation timeout passes or ctx is done.
func (g *Gateway) AwaitConfirmation(ctx context.Context, h *TxHandle) (*types.Receipt, error) {
	if h == nil {
		return nil, errors.New("await confirmation: nil handle")
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(g.cfg.ReceiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.backend.TransactionReceipt(ctx, h.Hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("tx %s: %w", h.Hash.Hex(), errs.ErrTransactionReverted)
			}
			g.logger.Info("wave confirmed", "tx", h.Hash.Hex(), "block", receipt.BlockNumber)
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			g.logger.Debug("receipt not available", "tx", h.Hash.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w: %w", h.Hash.Hex(), errs.ErrNetwork, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (g *Gateway) filter(event string) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.Contract},
		Topics:    [][]common.Hash{{g.abi.Events[event].ID}},
	}
}
