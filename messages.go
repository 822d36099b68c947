package main

import (
	"math/big"
	"time"

	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"
	"wave-portal-tui/wavelog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// busMsg wraps anything pushed from a background goroutine onto the event bus
type busMsg struct {
	msg tea.Msg
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
}

// clearClipboardMsg asks the view to drop stale copy feedback
type clearClipboardMsg struct{}

// nowTickMsg refreshes relative wave timestamps
type nowTickMsg time.Time

// ensLookupResultMsg contains result of reverse ENS lookup (address -> name)
type ensLookupResultMsg struct {
	helpers.ENSResult
}

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// rpcConnectedMsg contains result of the read RPC connection attempt
type rpcConnectedMsg struct {
	client  *rpc.Client
	chainID *big.Int
	err     error
}

// subscribedMsg carries the outcome of a live subscription attempt
type subscribedMsg struct {
	event   string
	sub     *rpc.Subscription
	err     error
	resumed bool // a re-subscription after a drop
}

// subDroppedMsg reports that the transport ended a live subscription
type subDroppedMsg struct {
	event string
	id    string
	err   error
}

// resubscribeMsg fires once the backoff after a drop has elapsed
type resubscribeMsg struct {
	event string
}

// historyLoadedMsg carries the historical wave query
type historyLoadedMsg struct {
	records []wavelog.WaveRecord
	err     error
}

// catchUpMsg carries waves missed while a subscription was down
type catchUpMsg struct {
	records []wavelog.WaveRecord
	err     error
}

// waveEventMsg is a live NewWave event
type waveEventMsg struct {
	record wavelog.WaveRecord
}

// prizeEventMsg is a live PrizeWon event
type prizeEventMsg struct {
	prize wavelog.Prize
}

// walletEventMsg is an accountsChanged or chainChanged notification
type walletEventMsg struct {
	ev wallet.Event
	ok bool // false once the wallet listener has been torn down
}

// walletNetworkMsg contains result of pointing the wallet at a network
type walletNetworkMsg struct {
	name    string
	chainID *big.Int
	err     error
	startup bool
}

// restoreMsg carries the silent startup account check
type restoreMsg struct {
	res wallet.ConnectResult
}

// connectMsg carries the wallet's answer to an explicit connect
type connectMsg struct {
	res wallet.ConnectResult
}

// accountCreatedMsg contains result of creating a keystore account
type accountCreatedMsg struct {
	address common.Address
	err     error
}

// waveSentMsg is returned once the wallet has signed and broadcast, or failed to
type waveSentMsg struct {
	handle *rpc.TxHandle
	err    error
}

// waveMinedMsg is returned once the wave transaction is mined or given up on
type waveMinedMsg struct {
	receipt *types.Receipt
	err     error
}

// balanceLoadedMsg contains the connected account balance
type balanceLoadedMsg struct {
	balance rpc.AccountBalance
}

// promptKind tells which wallet prompt is being asked
type promptKind int

const (
	promptAuthorize promptKind = iota
	promptApprove
)

// promptMsg asks the user to answer a wallet prompt. The answer goes back on
// reply, which is buffered so Update never blocks.
type promptMsg struct {
	kind       promptKind
	candidates []common.Address
	req        wallet.SignRequest
	reply      chan promptReply
}

// promptReply is the user's answer to a promptMsg
type promptReply struct {
	account    common.Address
	passphrase string
	err        error
}

// authorizedMsg reports the keystore's new authorized account list
type authorizedMsg struct {
	accounts []common.Address
}

// accountSelectedMsg is returned after the keystore switched accounts
type accountSelectedMsg struct {
	address common.Address
	err     error
}
