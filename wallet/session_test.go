package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/errs"
)

type fakeProvider struct {
	authorized []common.Address
	request    []common.Address
	requestErr error
	chainID    *big.Int
	chainErr   error
	requests   int
	feed       event.FeedOf[Event]
}

func (f *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return f.authorized, nil
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.requests++
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	f.authorized = f.request
	return f.request, nil
}

func (f *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, f.chainErr
}

func (f *fakeProvider) SubscribeEvents(ch chan<- Event) event.Subscription {
	return f.feed.Subscribe(ch)
}

var (
	acctA   = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	acctB   = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	rinkeby = big.NewInt(4)
)

func assertAccountInvariant(t *testing.T, s Session) {
	t.Helper()
	assert.Equal(t, s.Status == StatusConnected, s.Account != nil,
		"account must be present exactly when connected (status %s)", s.Status)
}

func TestConnectNoProvider(t *testing.T) {
	m := NewManager(nil, rinkeby, nil)

	err := m.Connect(context.Background())
	require.ErrorIs(t, err, errs.ErrNoProvider)

	s := m.Session()
	assert.Equal(t, StatusError, s.Status)
	assert.ErrorIs(t, s.Err, errs.ErrNoProvider)
	assertAccountInvariant(t, s)
}

func TestConnectApproved(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA, acctB}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	require.NoError(t, m.BeginConnect())
	assert.Equal(t, StatusConnecting, m.Session().Status)
	assertAccountInvariant(t, m.Session())

	require.NoError(t, m.FinishConnect(m.RequestAccess(context.Background())))

	s := m.Session()
	assert.Equal(t, StatusConnected, s.Status)
	require.NotNil(t, s.Account)
	assert.Equal(t, acctA, *s.Account)
	assert.Equal(t, int64(4), s.ChainID.Int64())
	assert.NoError(t, s.Warning)
	assertAccountInvariant(t, s)
}

func TestConnectRejected(t *testing.T) {
	p := &fakeProvider{requestErr: errs.ErrUserRejected, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	err := m.Connect(context.Background())
	require.ErrorIs(t, err, errs.ErrUserRejected)

	s := m.Session()
	assert.Equal(t, StatusError, s.Status)
	assert.ErrorIs(t, s.Err, errs.ErrUserRejected)
	assertAccountInvariant(t, s)

	m.Acknowledge()
	s = m.Session()
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.NoError(t, s.Err)
}

func TestConnectNoAccountsIsRejection(t *testing.T) {
	p := &fakeProvider{request: nil, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	err := m.Connect(context.Background())
	require.ErrorIs(t, err, errs.ErrUserRejected)
	assert.Equal(t, StatusError, m.Session().Status)
}

func TestConnectPending(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	require.NoError(t, m.BeginConnect())
	assert.ErrorIs(t, m.BeginConnect(), ErrConnectPending)
}

func TestConnectWhileConnectedKeepsAccount(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)
	require.NoError(t, m.Connect(context.Background()))

	require.NoError(t, m.BeginConnect())
	s := m.Session()
	assert.Equal(t, StatusConnected, s.Status)
	assert.Equal(t, acctA, *s.Account)
}

func TestRestoreSkipsConnecting(t *testing.T) {
	p := &fakeProvider{authorized: []common.Address{acctB}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	ok := m.FinishRestore(m.Restore(context.Background()))
	require.True(t, ok)

	s := m.Session()
	assert.Equal(t, StatusConnected, s.Status)
	assert.Equal(t, acctB, *s.Account)
	assert.Zero(t, p.requests, "restore must not prompt")
}

func TestRestoreWithoutAuthorizationStaysDisconnected(t *testing.T) {
	p := &fakeProvider{chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	assert.False(t, m.FinishRestore(m.Restore(context.Background())))
	s := m.Session()
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.NoError(t, s.Err)
	assertAccountInvariant(t, s)
}

func TestRestoreNoProviderStaysDisconnected(t *testing.T) {
	m := NewManager(nil, rinkeby, nil)

	assert.False(t, m.FinishRestore(m.Restore(context.Background())))
	assert.Equal(t, StatusDisconnected, m.Session().Status)
}

func TestDisconnect(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)
	require.NoError(t, m.Connect(context.Background()))

	m.Disconnect()
	s := m.Session()
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Nil(t, s.Account)
}

func TestAccountsChanged(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	t.Run("ignored while disconnected", func(t *testing.T) {
		m.HandleAccountsChanged([]common.Address{acctB})
		assert.Equal(t, StatusDisconnected, m.Session().Status)
		assert.Nil(t, m.Session().Account)
	})

	require.NoError(t, m.Connect(context.Background()))

	t.Run("switch keeps connection", func(t *testing.T) {
		m.Apply(Event{Kind: AccountsChanged, Accounts: []common.Address{acctB, acctA}})
		s := m.Session()
		assert.Equal(t, StatusConnected, s.Status)
		assert.Equal(t, acctB, *s.Account)
	})

	t.Run("empty list disconnects", func(t *testing.T) {
		m.Apply(Event{Kind: AccountsChanged})
		s := m.Session()
		assert.Equal(t, StatusDisconnected, s.Status)
		assertAccountInvariant(t, s)
	})
}

func TestChainChangedOnlyWarns(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)
	require.NoError(t, m.Connect(context.Background()))

	assert.True(t, m.HandleChainChanged(big.NewInt(1)))
	s := m.Session()
	assert.Equal(t, StatusConnected, s.Status)
	assert.Equal(t, acctA, *s.Account)
	assert.ErrorIs(t, s.Warning, errs.ErrUnsupportedNetwork)

	m.Apply(Event{Kind: ChainChanged, ChainID: big.NewInt(4)})
	assert.NoError(t, m.Session().Warning)
}

func TestConnectOnWrongChainWarns(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: big.NewInt(5)}
	m := NewManager(p, rinkeby, nil)
	require.NoError(t, m.Connect(context.Background()))

	s := m.Session()
	assert.Equal(t, StatusConnected, s.Status)
	assert.ErrorIs(t, s.Warning, errs.ErrUnsupportedNetwork)
}

func TestConnectChainIDFailure(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainErr: errors.New("boom")}
	m := NewManager(p, rinkeby, nil)

	require.Error(t, m.Connect(context.Background()))
	s := m.Session()
	assert.Equal(t, StatusError, s.Status)
	assertAccountInvariant(t, s)
}

func TestSessionSnapshotIsCopy(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)
	require.NoError(t, m.Connect(context.Background()))

	s := m.Session()
	*s.Account = acctB
	s.ChainID.SetInt64(99)

	again := m.Session()
	assert.Equal(t, acctA, *again.Account)
	assert.Equal(t, int64(4), again.ChainID.Int64())
}

func TestListen(t *testing.T) {
	p := &fakeProvider{request: []common.Address{acctA}, chainID: rinkeby}
	m := NewManager(p, rinkeby, nil)

	ch, stop := m.Listen()
	defer stop()

	p.feed.Send(Event{Kind: ChainChanged, ChainID: big.NewInt(1)})
	ev := <-ch
	assert.Equal(t, ChainChanged, ev.Kind)
	assert.Equal(t, int64(1), ev.ChainID.Int64())

	ch, stop = NewManager(nil, rinkeby, nil).Listen()
	assert.Nil(t, ch)
	stop()
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Connected", StatusConnected.String())
	assert.Equal(t, "Status(9)", Status(9).String())
	assert.Equal(t, "chainChanged", ChainChanged.String())
}
