package alarm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (r *recorder) run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{name: name, args: args})
	if r.fail[name] {
		return errors.New("exit status 1")
	}
	return nil
}

func newPlayer(goos string, rec *recorder, existing ...string) (*SystemPlayer, *bytes.Buffer) {
	bell := &bytes.Buffer{}
	p := NewSystemPlayer()
	p.OS = goos
	p.Run = rec.run
	p.Bell = bell
	p.Exists = func(path string) bool {
		for _, e := range existing {
			if e == path {
				return true
			}
		}
		return false
	}
	return p, bell
}

func TestSystemPlayer_Windows(t *testing.T) {
	rec := &recorder{}
	p, _ := newPlayer("windows", rec)

	require.NoError(t, p.Play(context.Background()))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "powershell", rec.calls[0].name)
	assert.Contains(t, strings.Join(rec.calls[0].args, " "), "[console]::beep(1000,200)")
}

func TestSystemPlayer_Darwin(t *testing.T) {
	rec := &recorder{}
	p, _ := newPlayer("darwin", rec)

	require.NoError(t, p.Play(context.Background()))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "afplay", rec.calls[0].name)
	assert.Equal(t, []string{"/System/Library/Sounds/Tink.aiff"}, rec.calls[0].args)
}

func TestSystemPlayer_Linux(t *testing.T) {
	glass := linuxSoundFiles[0]
	bellFile := linuxSoundFiles[1]

	t.Run("paplay succeeds", func(t *testing.T) {
		rec := &recorder{}
		p, bell := newPlayer("linux", rec, glass, bellFile)

		require.NoError(t, p.Play(context.Background()))
		require.Len(t, rec.calls, 1)
		assert.Equal(t, call{name: "paplay", args: []string{glass}}, rec.calls[0])
		assert.Empty(t, bell.String())
	})

	t.Run("falls back to aplay", func(t *testing.T) {
		rec := &recorder{fail: map[string]bool{"paplay": true}}
		p, _ := newPlayer("linux", rec, bellFile)

		require.NoError(t, p.Play(context.Background()))
		require.Len(t, rec.calls, 2)
		assert.Equal(t, call{name: "aplay", args: []string{bellFile}}, rec.calls[1])
	})

	t.Run("rings the bell when nothing plays", func(t *testing.T) {
		rec := &recorder{fail: map[string]bool{"paplay": true, "aplay": true}}
		p, bell := newPlayer("linux", rec, glass, bellFile)

		require.NoError(t, p.Play(context.Background()))
		assert.Len(t, rec.calls, 4)
		assert.Equal(t, "\a", bell.String())
	})

	t.Run("no sound files", func(t *testing.T) {
		rec := &recorder{}
		p, bell := newPlayer("linux", rec)

		require.NoError(t, p.Play(context.Background()))
		assert.Empty(t, rec.calls)
		assert.Equal(t, "\a", bell.String())
	})
}

type countingPlayer struct {
	plays atomic.Int32
}

func (c *countingPlayer) Play(context.Context) error {
	c.plays.Add(1)
	return nil
}

func TestAlarm_RepeatsUntilAcknowledged(t *testing.T) {
	player := &countingPlayer{}
	a := New(player, 10*time.Millisecond, nil)

	a.Start()
	assert.True(t, a.Active())

	require.Eventually(t, func() bool { return player.plays.Load() >= 3 },
		time.Second, 5*time.Millisecond)

	a.Acknowledge()
	assert.False(t, a.Active())

	stopped := player.plays.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, player.plays.Load())
}

func TestAlarm_PlaysImmediately(t *testing.T) {
	player := &countingPlayer{}
	a := New(player, time.Hour, nil)

	a.Start()
	defer a.Acknowledge()

	require.Eventually(t, func() bool { return player.plays.Load() == 1 },
		time.Second, time.Millisecond)
}

func TestAlarm_StartIsIdempotent(t *testing.T) {
	player := &countingPlayer{}
	a := New(player, time.Hour, nil)

	a.Start()
	a.Start()
	defer a.Acknowledge()

	require.Eventually(t, func() bool { return player.plays.Load() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), player.plays.Load())
}

func TestAlarm_AcknowledgeWithoutStart(t *testing.T) {
	a := New(&countingPlayer{}, 0, nil)
	assert.Equal(t, DefaultInterval, a.interval)

	a.Acknowledge()
	assert.False(t, a.Active())
}
