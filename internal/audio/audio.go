// Package audio plays notification sounds through an external player.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ErrNoSource is returned when there is nothing to play.
var ErrNoSource = errors.New("audio: no source")

// Player starts playback of a sound URL or file path.
type Player interface {
	Play(ctx context.Context, source string) (Playback, error)
}

// Playback is one running sound. Stop is idempotent.
type Playback interface {
	Stop()
	Done() <-chan struct{}
}

// DefaultCommand is the player used when none is configured.
var DefaultCommand = []string{"mpv", "--no-video", "--really-quiet"}

// ExecPlayer runs an external command with the source appended.
type ExecPlayer struct {
	command []string
}

// NewExecPlayer checks that the player binary exists. An empty command uses
// DefaultCommand.
func NewExecPlayer(command []string) (*ExecPlayer, error) {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if strings.TrimSpace(command[0]) == "" {
		return nil, fmt.Errorf("audio: empty player command")
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("audio: %s not found in PATH", command[0])
	}
	return &ExecPlayer{command: append([]string(nil), command...)}, nil
}

// Play starts the player. The process is killed when ctx ends or Stop is
// called, whichever comes first.
func (p *ExecPlayer) Play(ctx context.Context, source string) (Playback, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrNoSource
	}

	pctx, cancel := context.WithCancel(ctx)
	args := append(append([]string(nil), p.command[1:]...), source)
	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(pctx, p.command[0], args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("audio: start %s: %w", p.command[0], err)
	}

	pb := &execPlayback{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(pb.done)
		err := cmd.Wait()
		if err != nil && pctx.Err() == nil {
			slog.Warn("audio: player exited", "source", source, "error", err,
				"stderr", strings.TrimSpace(stderr.String()))
		}
	}()
	return pb, nil
}

type execPlayback struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *execPlayback) Stop() { p.once.Do(p.cancel) }
func (p *execPlayback) Done() <-chan struct{} { return p.done }

// NopPlayer accepts every request and plays nothing.
type NopPlayer struct{}

func (NopPlayer) Play(_ context.Context, source string) (Playback, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrNoSource
	}
	return newSilentPlayback(), nil
}

type silentPlayback struct {
	once sync.Once
	done chan struct{}
}

func newSilentPlayback() *silentPlayback { return &silentPlayback{done: make(chan struct{})} }

func (p *silentPlayback) Stop() { p.once.Do(func() { close(p.done) }) }
func (p *silentPlayback) Done() <-chan struct{} { return p.done }
