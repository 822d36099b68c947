package waves

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/errs"
	"wave-portal-tui/wavelog"
)

func TestWindow(t *testing.T) {
	assert.Equal(t, 0, Window(5, 4, 10))
	assert.Equal(t, 0, Window(20, 2, 6))
	assert.Equal(t, 7, Window(20, 10, 6))
	assert.Equal(t, 14, Window(20, 19, 6))
}

func TestRenderStates(t *testing.T) {
	out, areas := Render(nil, State{})
	assert.Contains(t, out, "Loading wave history")
	assert.Empty(t, areas)

	out, _ = Render(nil, State{Seeded: true, LoadErr: errors.Join(errs.ErrNetwork, errors.New("timeout"))})
	assert.Contains(t, out, "Could not load wave history")

	out, _ = Render(nil, State{Seeded: true})
	assert.Contains(t, out, "No waves yet")
}

func TestRenderAreas(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	list := []wavelog.WaveRecord{
		{Waver: common.HexToAddress("0xa1"), Timestamp: now.Unix() - 60, Message: "second"},
		{Waver: common.HexToAddress("0xb2"), Timestamp: now.Unix() - 120, Message: "first"},
	}

	out, areas := Render(list, State{Seeded: true, Live: true, Selected: 1, Height: 20, Width: 60, Now: now})

	require.Len(t, areas, 2)
	lines := strings.Split(out, "\n")
	for i, a := range areas {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, 2, a.Height)
		assert.Contains(t, lines[a.Y+1], list[i].Message)
	}
	assert.Contains(t, out, "2 waves")
}
