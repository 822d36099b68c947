package helpers

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestShortenAddr(t *testing.T) {
	assert.Equal(t, "0xd988…b579", ShortenAddr("0xd98840ecb01bdF2520B3418F2409709b6336b579"))
	assert.Equal(t, "0x12", ShortenAddr("0x12"))
}

func TestFormatETH(t *testing.T) {
	assert.Equal(t, "0 ETH", FormatETH(nil))
	assert.Equal(t, "1.500000 ETH", FormatETH(big.NewInt(1_500_000_000_000_000_000)))
}

func TestWaveTime(t *testing.T) {
	now := time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute), "1 min ago"},
		{"minutes", now.Add(-5 * time.Minute), "5 mins ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"old", now.Add(-72 * time.Hour), now.Add(-72 * time.Hour).Local().Format("2006-01-02 15:04")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WaveTime(tt.at, now))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hell…", Truncate("hello world", 5))
	assert.Equal(t, "a b", Truncate("a\n\tb", 10), "whitespace is flattened")
	assert.Equal(t, "üb…", Truncate("über", 3))
	assert.Equal(t, "", Truncate("x", 0))
}

func TestFadeString(t *testing.T) {
	assert.Empty(t, FadeString("", "#F25D94", "#EDFF82"))
	assert.NotEmpty(t, FadeString("wave", "#F25D94", "#EDFF82"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-1, 3))
	assert.Equal(t, 2, Clamp(7, 3))
	assert.Equal(t, 0, Clamp(3, 0))
	assert.Equal(t, 3, Max(3, Min(1, 2)))
}

func TestLookupENSWithoutClient(t *testing.T) {
	r := LookupENS(nil, common.HexToAddress("0x01"))
	assert.Error(t, r.Error)
	assert.Empty(t, r.Name)
}
