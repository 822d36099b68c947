package wavelog

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0xAAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	addrB = common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB")
)

func wave(w common.Address, ts int64, msg string) WaveRecord {
	return WaveRecord{Waver: w, Timestamp: ts, Message: msg}
}

func timestamps(records []WaveRecord) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.Timestamp)
	}
	return out
}

func TestSeedOrdersDescending(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{
		wave(addrA, 100, "a"),
		wave(addrA, 300, "c"),
		wave(addrA, 200, "b"),
	})

	assert.Equal(t, []int64{300, 200, 100}, timestamps(s.All()))
	assert.True(t, s.Seeded())
	assert.NoError(t, s.Err())
}

func TestSeedDeduplicates(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{
		wave(addrA, 100, "first"),
		wave(addrA, 100, "same second"),
		wave(addrB, 100, "other waver"),
	})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Message)
	assert.Equal(t, addrB, all[1].Waver)
}

func TestSeedReplacesContents(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{wave(addrA, 100, "old")})
	s.Seed([]WaveRecord{wave(addrB, 50, "new")})

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, addrB, all[0].Waver)
}

func TestApplyLiveEventIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Seed(nil)

	r := wave(addrA, 500, "hi")
	assert.True(t, s.ApplyLiveEvent(r))
	once := s.All()

	assert.False(t, s.ApplyLiveEvent(r))
	assert.Equal(t, once, s.All())
}

func TestApplyLiveEventPrepends(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{wave(addrA, 1000, "hi")})

	s.ApplyLiveEvent(wave(addrB, 2000, "yo"))

	assert.Equal(t, []WaveRecord{
		wave(addrB, 2000, "yo"),
		wave(addrA, 1000, "hi"),
	}, s.All())
}

func TestLiveEventBeforeSeedIsBuffered(t *testing.T) {
	s := NewStore()

	assert.False(t, s.ApplyLiveEvent(wave(addrA, 500, "hi")))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.Buffered())

	s.Seed([]WaveRecord{wave(addrA, 400, "x")})

	assert.Equal(t, []int64{500, 400}, timestamps(s.All()))
	assert.Equal(t, 0, s.Buffered())
}

func TestBufferedEventAlreadyInHistory(t *testing.T) {
	s := NewStore()
	s.ApplyLiveEvent(wave(addrA, 400, "x"))
	s.ApplyLiveEvent(wave(addrA, 400, "x"))
	assert.Equal(t, 1, s.Buffered())

	s.Seed([]WaveRecord{wave(addrA, 400, "x"), wave(addrB, 300, "y")})

	assert.Equal(t, []int64{400, 300}, timestamps(s.All()))
}

func TestBufferedEventsKeepArrivalOrder(t *testing.T) {
	s := NewStore()
	s.ApplyLiveEvent(wave(addrA, 600, "first"))
	s.ApplyLiveEvent(wave(addrB, 700, "second"))

	s.Seed([]WaveRecord{wave(addrA, 100, "history")})

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "second", all[0].Message)
	assert.Equal(t, "first", all[1].Message)
	assert.Equal(t, "history", all[2].Message)
}

func TestSeedFailed(t *testing.T) {
	s := NewStore()
	s.ApplyLiveEvent(wave(addrA, 500, "hi"))

	boom := errors.New("boom")
	s.SeedFailed(boom)

	assert.True(t, s.Seeded())
	assert.ErrorIs(t, s.Err(), boom)
	assert.Equal(t, []int64{500}, timestamps(s.All()))
}

func TestAllReturnsSnapshot(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{wave(addrA, 100, "a")})

	snap := s.All()
	snap[0].Message = "mutated"

	assert.Equal(t, "a", s.All()[0].Message)
}

func TestEndToEnd(t *testing.T) {
	s := NewStore()
	aa := common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bb := common.HexToAddress("0xBB00000000000000000000000000000000000000")

	s.Seed([]WaveRecord{wave(aa, 1000, "hi")})
	s.ApplyLiveEvent(wave(bb, 2000, "yo"))

	assert.Equal(t, []WaveRecord{wave(bb, 2000, "yo"), wave(aa, 1000, "hi")}, s.All())
}

func TestMergePlacesByTimestamp(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{wave(addrA, 1000, "old")})
	s.ApplyLiveEvent(wave(addrA, 1200, "live-after-resub"))

	assert.Equal(t, 1, s.Merge(wave(addrB, 1100, "missed-during-drop")))
	assert.Equal(t, -1, s.Merge(wave(addrA, 1200, "live-after-resub")))

	assert.Equal(t, []int64{1200, 1100, 1000}, timestamps(s.All()))
}

func TestMergeEdges(t *testing.T) {
	s := NewStore()
	s.Seed([]WaveRecord{wave(addrA, 1000, "a")})

	assert.Equal(t, 0, s.Merge(wave(addrB, 3000, "newest")))
	assert.Equal(t, 2, s.Merge(wave(addrB, 10, "oldest")))
	assert.Equal(t, 2, s.Merge(wave(addrB, 1000, "same second")), "after the existing entry")
	assert.Equal(t, []int64{3000, 1000, 1000, 10}, timestamps(s.All()))
}

func TestMergeBeforeSeedIsBuffered(t *testing.T) {
	s := NewStore()
	assert.Equal(t, -1, s.Merge(wave(addrA, 500, "x")))
	assert.Equal(t, 1, s.Buffered())

	s.Seed([]WaveRecord{wave(addrB, 400, "y")})
	assert.Equal(t, []int64{500, 400}, timestamps(s.All()))
}
