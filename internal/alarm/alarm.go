// Package alarm plays a repeating completion sound until the operator
// acknowledges it.
package alarm

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/anstrom/uplink/internal/logging"
)

// DefaultInterval is the pause between two sounds.
const DefaultInterval = 500 * time.Millisecond

// Sound files tried on linux, in order.
var linuxSoundFiles = []string{
	"/usr/share/sounds/gnome/default/alerts/glass.ogg",
	"/usr/share/sounds/freedesktop/stereo/bell.oga",
}

// Player produces one short completion sound.
type Player interface {
	Play(ctx context.Context) error
}

// CommandFunc runs an external program and waits for it.
type CommandFunc func(ctx context.Context, name string, args ...string) error

// SystemPlayer plays the platform's notification sound.
type SystemPlayer struct {
	OS       string
	Run      CommandFunc
	Exists   func(path string) bool
	Bell     io.Writer
	Files    []string
	BeepFreq int
	BeepMs   int
}

// NewSystemPlayer returns a player for the running platform.
func NewSystemPlayer() *SystemPlayer {
	return &SystemPlayer{
		OS:       runtime.GOOS,
		Run:      runCommand,
		Exists:   fileExists,
		Bell:     os.Stdout,
		Files:    linuxSoundFiles,
		BeepFreq: 1000,
		BeepMs:   200,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Play implements Player.
func (p *SystemPlayer) Play(ctx context.Context) error {
	switch p.OS {
	case "windows":
		return p.Run(ctx, "powershell", "-NoProfile", "-Command",
			fmt.Sprintf("[console]::beep(%d,%d)", p.BeepFreq, p.BeepMs))
	case "darwin":
		return p.Run(ctx, "afplay", "/System/Library/Sounds/Tink.aiff")
	case "linux":
		for _, file := range p.Files {
			if !p.Exists(file) {
				continue
			}
			for _, player := range []string{"paplay", "aplay"} {
				if err := p.Run(ctx, player, file); err == nil {
					return nil
				}
			}
		}
		return p.ring()
	default:
		return p.ring()
	}
}

func (p *SystemPlayer) ring() error {
	if p.Bell == nil {
		return nil
	}
	_, err := io.WriteString(p.Bell, "\a")
	return err
}

// Alarm repeats a sound every interval until acknowledged.
type Alarm struct {
	player   Player
	interval time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an alarm. A non-positive interval uses DefaultInterval.
func New(player Player, interval time.Duration, logger *logging.Logger) *Alarm {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Alarm{
		player:   player,
		interval: interval,
		logger:   logger.WithComponent("alarm"),
	}
}

// Start plays the sound immediately and then every interval.
// Calling Start on a ringing alarm does nothing.
func (a *Alarm) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(ctx, a.done)
	a.logger.Info("Alarm started", "interval", a.interval)
}

func (a *Alarm) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.player.Play(ctx); err != nil && ctx.Err() == nil {
			a.logger.Debug("Alarm sound failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Acknowledge stops the alarm and waits for the sound loop to exit.
func (a *Alarm) Acknowledge() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	a.logger.Info("Alarm acknowledged")
}

// Active reports whether the alarm is ringing.
func (a *Alarm) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}
