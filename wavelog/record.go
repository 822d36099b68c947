package wavelog

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WaveRecord is a single NewWave event as shown in the log.
type WaveRecord struct {
	Waver     common.Address
	Timestamp int64 // seconds since epoch, as emitted by the contract
	Message   string

	// Where the event was observed. Informational only, not part of the identity.
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// Key identifies a wave. Two waves from the same address within the same
// second share a key and are treated as one entry.
type Key struct {
	Waver     common.Address
	Timestamp int64
}

// Key returns the identity of the record.
func (r WaveRecord) Key() Key {
	return Key{Waver: r.Waver, Timestamp: r.Timestamp}
}

// Time returns the wave timestamp as a time.Time.
func (r WaveRecord) Time() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// Prize is a PrizeWon event. Amount is denominated in wei.
type Prize struct {
	Winner      common.Address
	Amount      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
}
