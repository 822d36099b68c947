package rpc

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/errs"
	"wave-portal-tui/wavelog"
)

var (
	testContract = common.HexToAddress("0xd98840ecb01bdF2520B3418F2409709b6336b579")
	waverA       = common.HexToAddress("0xAA00000000000000000000000000000000000001")
	waverB       = common.HexToAddress("0xBB00000000000000000000000000000000000002")
)

// -------------------- FAKES --------------------

type fakeSub struct {
	ch       chan<- types.Log
	errc     chan error
	unsubbed chan struct{}
	once     sync.Once
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() { close(s.unsubbed) })
}

func (s *fakeSub) Err() <-chan error { return s.errc }

type fakeBackend struct {
	mu          sync.Mutex
	head        uint64
	headErr     error
	logs        []types.Log
	filterErr   error
	filterCalls []ethereum.FilterQuery
	noPush      bool
	subErr      error
	subs        []*fakeSub
	receipts    map[common.Hash]*types.Receipt
	receiptHits int
}

func newFakeBackend(head uint64) *fakeBackend {
	return &fakeBackend{head: head, receipts: make(map[common.Hash]*types.Receipt)}
}

func (b *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, b.headErr
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filterCalls = append(b.filterCalls, q)
	if b.filterErr != nil {
		return nil, b.filterErr
	}
	var out []types.Log
	for _, l := range b.logs {
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && l.Topics[0] != q.Topics[0][0] {
			continue
		}
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.noPush {
		return nil, gethrpc.ErrNotificationsUnsupported
	}
	if b.subErr != nil {
		return nil, b.subErr
	}
	s := &fakeSub{ch: ch, errc: make(chan error, 1), unsubbed: make(chan struct{})}
	b.subs = append(b.subs, s)
	return s, nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiptHits++
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *fakeBackend) addLog(l types.Log, head uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, l)
	b.head = head
}

func (b *fakeBackend) lastSub() *fakeSub {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[len(b.subs)-1]
}

type fakeSigner struct {
	calls []ethereum.CallMsg
	hash  common.Hash
	err   error
}

func (s *fakeSigner) SendTransaction(ctx context.Context, call ethereum.CallMsg) (common.Hash, error) {
	s.calls = append(s.calls, call)
	return s.hash, s.err
}

// -------------------- HELPERS --------------------

func testABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := ParseWavePortalABI()
	require.NoError(t, err)
	return parsed
}

func waveLog(t *testing.T, waver common.Address, ts int64, msg string, block uint64) types.Log {
	t.Helper()
	ev := testABI(t).Events[EventNewWave]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(ts), msg)
	require.NoError(t, err)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(waver.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func prizeLog(t *testing.T, winner common.Address, amount *big.Int, block uint64) types.Log {
	t.Helper()
	ev := testABI(t).Events[EventPrizeWon]
	data, err := ev.Inputs.NonIndexed().Pack(amount)
	require.NoError(t, err)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(winner.Bytes())},
		Data:        data,
		BlockNumber: block,
	}
}

func newTestGateway(t *testing.T, b Backend) *Gateway {
	t.Helper()
	g, err := NewGateway(b, GatewayConfig{
		Contract:        testContract,
		StartBlock:      100,
		GasLimit:        300000,
		RequestTimeout:  time.Second,
		ConfirmTimeout:  200 * time.Millisecond,
		PollInterval:    10 * time.Millisecond,
		ReceiptInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return g
}

// -------------------- TESTS --------------------

func TestDecodeWave(t *testing.T) {
	l := waveLog(t, waverA, 1000, "hi", 120)
	l.Index = 3

	r, err := DecodeWave(testABI(t), l)
	require.NoError(t, err)
	assert.Equal(t, wavelog.WaveRecord{
		Waver:       waverA,
		Timestamp:   1000,
		Message:     "hi",
		BlockNumber: 120,
		TxHash:      l.TxHash,
		LogIndex:    3,
	}, r)

	_, err = DecodeWave(testABI(t), prizeLog(t, waverA, big.NewInt(1), 1))
	assert.Error(t, err)
}

func TestDecodePrize(t *testing.T) {
	amount := big.NewInt(100000000000000)
	p, err := DecodePrize(testABI(t), prizeLog(t, waverB, amount, 7))
	require.NoError(t, err)
	assert.Equal(t, waverB, p.Winner)
	assert.Equal(t, 0, amount.Cmp(p.Amount))
	assert.Equal(t, uint64(7), p.BlockNumber)
}

func TestQueryHistoricalWaves(t *testing.T) {
	b := newFakeBackend(500)
	removed := waveLog(t, waverB, 1500, "reorged", 300)
	removed.Removed = true
	b.logs = []types.Log{
		waveLog(t, waverA, 1000, "hi", 150),
		waveLog(t, waverA, 900, "too early", 50),
		prizeLog(t, waverA, big.NewInt(1), 160),
		removed,
		waveLog(t, waverB, 2000, "yo", 400),
	}
	g := newTestGateway(t, b)

	records, err := g.QueryHistoricalWaves(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "hi", records[0].Message)
	assert.Equal(t, "yo", records[1].Message)

	require.Len(t, b.filterCalls, 1)
	q := b.filterCalls[0]
	assert.Equal(t, uint64(100), q.FromBlock.Uint64())
	assert.Equal(t, uint64(500), q.ToBlock.Uint64())
	assert.Equal(t, []common.Address{testContract}, q.Addresses)
}

func TestQueryHistoricalWavesNetworkError(t *testing.T) {
	t.Run("head", func(t *testing.T) {
		b := newFakeBackend(500)
		b.headErr = errors.New("connection refused")
		_, err := newTestGateway(t, b).QueryHistoricalWaves(context.Background())
		assert.ErrorIs(t, err, errs.ErrNetwork)
	})

	t.Run("logs", func(t *testing.T) {
		b := newFakeBackend(500)
		b.filterErr = errors.New("query timeout")
		_, err := newTestGateway(t, b).QueryHistoricalWaves(context.Background())
		assert.ErrorIs(t, err, errs.ErrNetwork)
	})
}

func TestQueryWavesSinceAheadOfHead(t *testing.T) {
	b := newFakeBackend(50)
	records, err := newTestGateway(t, b).QueryWavesSince(context.Background(), 51)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, b.filterCalls)
}

func TestSubscribeWaveEventsStream(t *testing.T) {
	b := newFakeBackend(500)
	g := newTestGateway(t, b)

	got := make(chan wavelog.WaveRecord, 4)
	sub, err := g.SubscribeWaveEvents(context.Background(), func(r wavelog.WaveRecord) { got <- r })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Equal(t, ModeStream, sub.Mode)
	assert.NotEmpty(t, sub.ID)

	fs := b.lastSub()
	removed := waveLog(t, waverA, 1, "gone", 501)
	removed.Removed = true
	fs.ch <- removed
	fs.ch <- waveLog(t, waverB, 2000, "yo", 502)

	select {
	case r := <-got:
		assert.Equal(t, "yo", r.Message)
		assert.Equal(t, waverB, r.Waver)
	case <-time.After(time.Second):
		t.Fatal("no wave delivered")
	}
}

func TestSubscribePrizeEvents(t *testing.T) {
	b := newFakeBackend(500)
	g := newTestGateway(t, b)

	got := make(chan wavelog.Prize, 1)
	sub, err := g.SubscribePrizeEvents(context.Background(), func(p wavelog.Prize) { got <- p })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	b.lastSub().ch <- prizeLog(t, waverA, big.NewInt(42), 501)

	select {
	case p := <-got:
		assert.Equal(t, waverA, p.Winner)
		assert.Equal(t, int64(42), p.Amount.Int64())
	case <-time.After(time.Second):
		t.Fatal("no prize delivered")
	}
}

func TestSubscriptionDropped(t *testing.T) {
	b := newFakeBackend(500)
	g := newTestGateway(t, b)

	sub, err := g.SubscribeWaveEvents(context.Background(), func(wavelog.WaveRecord) {})
	require.NoError(t, err)

	fs := b.lastSub()
	fs.errc <- errors.New("websocket: close 1006")

	select {
	case err := <-sub.Err():
		assert.ErrorIs(t, err, errs.ErrNetwork)
	case <-time.After(time.Second):
		t.Fatal("drop not reported")
	}
	<-sub.Done()
	<-fs.unsubbed

	sub.Unsubscribe()
}

func TestUnsubscribeTearsDown(t *testing.T) {
	b := newFakeBackend(500)
	g := newTestGateway(t, b)

	sub, err := g.SubscribeWaveEvents(context.Background(), func(wavelog.WaveRecord) {})
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case <-b.lastSub().unsubbed:
	case <-time.After(time.Second):
		t.Fatal("transport subscription not released")
	}
	select {
	case err := <-sub.Err():
		t.Fatalf("unexpected error after unsubscribe: %v", err)
	default:
	}
}

func TestSubscribeError(t *testing.T) {
	b := newFakeBackend(500)
	b.subErr = errors.New("too many subscriptions")
	_, err := newTestGateway(t, b).SubscribeWaveEvents(context.Background(), func(wavelog.WaveRecord) {})
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestSubscribePollFallback(t *testing.T) {
	b := newFakeBackend(500)
	b.noPush = true
	b.logs = []types.Log{waveLog(t, waverA, 1000, "old", 450)}
	g := newTestGateway(t, b)

	var mu sync.Mutex
	var got []wavelog.WaveRecord
	sub, err := g.SubscribeWaveEvents(context.Background(), func(r wavelog.WaveRecord) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Equal(t, ModePoll, sub.Mode)

	b.addLog(waveLog(t, waverB, 2000, "new", 501), 501)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "new", got[0].Message)
	mu.Unlock()

	// the next rounds start after the delivered block
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func TestSubmitWave(t *testing.T) {
	g := newTestGateway(t, newFakeBackend(500))
	signer := &fakeSigner{hash: common.HexToHash("0x01")}

	h, err := g.SubmitWave(context.Background(), signer, waverA, "hello")
	require.NoError(t, err)
	assert.Equal(t, signer.hash, h.Hash)
	assert.Equal(t, waverA, h.From)

	require.Len(t, signer.calls, 1)
	call := signer.calls[0]
	assert.Equal(t, waverA, call.From)
	assert.Equal(t, testContract, *call.To)
	assert.Equal(t, uint64(300000), call.Gas)

	want, err := testABI(t).Pack(MethodWaveAtMe, "hello")
	require.NoError(t, err)
	assert.Equal(t, want, call.Data)
}

func TestSubmitWaveErrors(t *testing.T) {
	g := newTestGateway(t, newFakeBackend(500))

	t.Run("declined", func(t *testing.T) {
		_, err := g.SubmitWave(context.Background(), &fakeSigner{err: errs.ErrUserRejected}, waverA, "hi")
		assert.ErrorIs(t, err, errs.ErrSubmissionRejected)
	})

	t.Run("transport", func(t *testing.T) {
		_, err := g.SubmitWave(context.Background(), &fakeSigner{err: errors.New("eof")}, waverA, "hi")
		assert.ErrorIs(t, err, errs.ErrNetwork)
		assert.NotErrorIs(t, err, errs.ErrSubmissionRejected)
	})

	t.Run("no signer", func(t *testing.T) {
		_, err := g.SubmitWave(context.Background(), nil, waverA, "hi")
		assert.ErrorIs(t, err, errs.ErrNoProvider)
	})
}

func TestAwaitConfirmation(t *testing.T) {
	hash := common.HexToHash("0xabc")

	t.Run("mined", func(t *testing.T) {
		b := newFakeBackend(500)
		g := newTestGateway(t, b)
		go func() {
			time.Sleep(20 * time.Millisecond)
			b.mu.Lock()
			b.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(501)}
			b.mu.Unlock()
		}()

		r, err := g.AwaitConfirmation(context.Background(), &TxHandle{Hash: hash})
		require.NoError(t, err)
		assert.Equal(t, uint64(501), r.BlockNumber.Uint64())
	})

	t.Run("reverted", func(t *testing.T) {
		b := newFakeBackend(500)
		b.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(501)}
		_, err := newTestGateway(t, b).AwaitConfirmation(context.Background(), &TxHandle{Hash: hash})
		assert.ErrorIs(t, err, errs.ErrTransactionReverted)
	})

	t.Run("timeout", func(t *testing.T) {
		b := newFakeBackend(500)
		_, err := newTestGateway(t, b).AwaitConfirmation(context.Background(), &TxHandle{Hash: hash})
		assert.ErrorIs(t, err, errs.ErrNetwork)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestExplorer(t *testing.T) {
	e := Explorer{BaseURL: "https://rinkeby.etherscan.io/"}
	assert.Equal(t, "https://rinkeby.etherscan.io/address/"+waverA.Hex(), e.AddressURL(waverA))
	assert.Contains(t, e.TxURL(common.HexToHash("0x01")), "https://rinkeby.etherscan.io/tx/0x")
	assert.NotEmpty(t, GenerateQRCode(e.TxURL(common.HexToHash("0x01"))))
	assert.Empty(t, GenerateQRCode(""))
}
