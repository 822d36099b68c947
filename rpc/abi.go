package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"wave-portal-tui/wavelog"
)

// WavePortal contract entry points and events.
const (
	MethodWaveAtMe = "waveAtMe"
	EventNewWave   = "NewWave"
	EventPrizeWon  = "PrizeWon"
)

// WavePortalABI is the subset of the WavePortal ABI this client uses.
const WavePortalABI = `[
	{"type":"function","name":"waveAtMe","stateMutability":"nonpayable",
	 "inputs":[{"name":"_message","type":"string"}],"outputs":[]},
	{"type":"event","name":"NewWave","anonymous":false,
	 "inputs":[{"indexed":true,"name":"from","type":"address"},
	           {"indexed":false,"name":"timestamp","type":"uint256"},
	           {"indexed":false,"name":"message","type":"string"}]},
	{"type":"event","name":"PrizeWon","anonymous":false,
	 "inputs":[{"indexed":true,"name":"winner","type":"address"},
	           {"indexed":false,"name":"prizeAmount","type":"uint256"}]}
]`

// ParseWavePortalABI parses WavePortalABI.
func ParseWavePortalABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(WavePortalABI))
}

// unpackEvent decodes both indexed and data fields of an event log into a map
// keyed by argument name.
func unpackEvent(contract abi.ABI, name string, l types.Log) (map[string]interface{}, error) {
	ev, ok := contract.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}
	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return nil, fmt.Errorf("log is not a %s event", name)
	}

	out := make(map[string]interface{})
	if err := contract.UnpackIntoMap(out, name, l.Data); err != nil {
		return nil, fmt.Errorf("unpack %s data: %w", name, err)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(out, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("unpack %s topics: %w", name, err)
	}
	return out, nil
}

// DecodeWave turns a NewWave log into a WaveRecord.
func DecodeWave(contract abi.ABI, l types.Log) (wavelog.WaveRecord, error) {
	out, err := unpackEvent(contract, EventNewWave, l)
	if err != nil {
		return wavelog.WaveRecord{}, err
	}

	waver, ok := out["from"].(common.Address)
	if !ok {
		return wavelog.WaveRecord{}, fmt.Errorf("NewWave: unexpected waver type %T", out["from"])
	}
	ts, ok := out["timestamp"].(*big.Int)
	if !ok || !ts.IsInt64() {
		return wavelog.WaveRecord{}, fmt.Errorf("NewWave: bad timestamp %v", out["timestamp"])
	}
	msg, _ := out["message"].(string)

	return wavelog.WaveRecord{
		Waver:       waver,
		Timestamp:   ts.Int64(),
		Message:     msg,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
	}, nil
}

// DecodePrize turns a PrizeWon log into a Prize.
func DecodePrize(contract abi.ABI, l types.Log) (wavelog.Prize, error) {
	out, err := unpackEvent(contract, EventPrizeWon, l)
	if err != nil {
		return wavelog.Prize{}, err
	}

	winner, ok := out["winner"].(common.Address)
	if !ok {
		return wavelog.Prize{}, fmt.Errorf("PrizeWon: unexpected winner type %T", out["winner"])
	}
	amount, ok := out["prizeAmount"].(*big.Int)
	if !ok {
		return wavelog.Prize{}, fmt.Errorf("PrizeWon: unexpected amount type %T", out["prizeAmount"])
	}

	return wavelog.Prize{
		Winner:      winner,
		Amount:      amount,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
	}, nil
}
