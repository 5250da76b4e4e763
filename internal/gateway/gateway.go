// Package gateway receives "deal closed" push events, validates them, and
// fans them out to subscribers. It keeps one live connection, falling back
// through the configured transports and reconnecting after loss.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// ErrGaveUp is returned by Run after MaxAttempts consecutive failures.
var ErrGaveUp = errors.New("gateway: reconnect attempts exhausted")

// State is the connection state.
type State string

const (
	StateDisabled     State = "disabled"
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// Status is a point-in-time view of the gateway.
type Status struct {
	State       State     `json:"state"`
	Transport   string    `json:"transport,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"lastError,omitempty"`
	Accepted    int       `json:"accepted"`
	Rejected    int       `json:"rejected"`
	LastEventAt time.Time `json:"lastEventAt"`
}

// Config holds reconnect and validation settings.
type Config struct {
	ReconnectDelay time.Duration
	MaxAttempts    int      // consecutive failures before giving up; 0 = never
	SentinelNames  []string // nil = DefaultSentinelNames
	OnStatus       func(Status)
}

// DefaultConfig reconnects every 5s and gives up after 10 failed attempts.
func DefaultConfig() Config {
	return Config{ReconnectDelay: 5 * time.Second, MaxAttempts: 10}
}

// Gateway is safe for concurrent use.
type Gateway struct {
	clock      clockwork.Clock
	cfg        Config
	validator  *Validator
	transports []Transport

	mu      sync.Mutex
	subs    map[int]func(model.DealNotification)
	nextSub int
	status  Status
}

// New creates a gateway. Transports are tried in the given order.
func New(clock clockwork.Clock, cfg Config, transports ...Transport) *Gateway {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultConfig().ReconnectDelay
	}
	g := &Gateway{
		clock:      clock,
		cfg:        cfg,
		validator:  NewValidator(cfg.SentinelNames),
		transports: transports,
		subs:       make(map[int]func(model.DealNotification)),
	}
	g.status.State = StateDisconnected
	if len(transports) == 0 {
		g.status.State = StateDisabled
	}
	return g
}

// Subscribe registers fn for every accepted deal. The returned func
// unsubscribes and is safe to call more than once.
func (g *Gateway) Subscribe(fn func(model.DealNotification)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

// Status returns the current connection state and counters.
func (g *Gateway) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Ingest runs one raw frame through the same path as pushed frames. It is
// used by the local webhook.
func (g *Gateway) Ingest(raw []byte) (model.DealNotification, error) {
	n, ok, err := g.accept(raw)
	if err != nil {
		return n, err
	}
	if !ok {
		return n, fmt.Errorf("%w: not a deal event", ErrInvalidEvent)
	}
	return n, nil
}

// Run keeps a stream open until ctx ends. It returns nil on cancellation
// and ErrGaveUp once MaxAttempts consecutive connection attempts failed.
func (g *Gateway) Run(ctx context.Context) error {
	defer g.closeTransports()

	if len(g.transports) == 0 {
		slog.Info("gateway: no push transport configured")
		<-ctx.Done()
		return nil
	}

	failures := 0
	for {
		g.setStatus(func(s *Status) {
			s.State = StateConnecting
			s.Transport = ""
			s.Attempts = failures + 1
		})

		stream, name, err := g.open(ctx)
		if ctx.Err() != nil {
			g.setStatus(func(s *Status) { s.State = StateDisconnected })
			return nil
		}

		if err == nil {
			failures = 0
			session := uuid.NewString()
			slog.Info("gateway: connected", "transport", name, "session", session)
			g.setStatus(func(s *Status) {
				s.State = StateConnected
				s.Transport = name
				s.SessionID = session
				s.LastError = ""
			})

			err = g.consume(ctx, stream)
			_ = stream.Close()
			if ctx.Err() != nil {
				g.setStatus(func(s *Status) { s.State = StateDisconnected })
				return nil
			}
			slog.Warn("gateway: stream lost", "transport", name, "error", err)
		} else {
			failures++
			slog.Warn("gateway: connect failed",
				"attempt", failures,
				"max_attempts", g.cfg.MaxAttempts,
				"error", err,
			)
			if g.cfg.MaxAttempts > 0 && failures >= g.cfg.MaxAttempts {
				g.setStatus(func(s *Status) {
					s.State = StateFailed
					s.LastError = err.Error()
				})
				return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, failures, err)
			}
		}

		g.setStatus(func(s *Status) {
			s.State = StateDisconnected
			s.Transport = ""
			if err != nil {
				s.LastError = err.Error()
			}
		})
		if !g.sleep(ctx, g.cfg.ReconnectDelay) {
			return nil
		}
	}
}

// open tries each transport in order and returns the first live stream.
func (g *Gateway) open(ctx context.Context) (Stream, string, error) {
	var errs []error
	for _, t := range g.transports {
		stream, err := t.Open(ctx)
		if err == nil {
			return stream, t.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		slog.Debug("gateway: transport unavailable", "transport", t.Name(), "error", err)
		errs = append(errs, err)
	}
	return nil, "", errors.Join(errs...)
}

func (g *Gateway) consume(ctx context.Context, stream Stream) error {
	for {
		raw, err := stream.Recv(ctx)
		if err != nil {
			return err
		}
		if _, _, err := g.accept(raw); err != nil {
			slog.Warn("gateway: dropped event", "error", err)
		}
	}
}

// accept decodes, validates and delivers one frame.
func (g *Gateway) accept(raw []byte) (model.DealNotification, bool, error) {
	n, ok, err := decode(raw)
	if err == nil && ok {
		err = g.validator.Validate(n)
	}
	if err != nil {
		g.setStatus(func(s *Status) { s.Rejected++ })
		return n, false, err
	}
	if !ok {
		return n, false, nil
	}

	n.ID = uuid.NewString()
	n.ReceivedAt = g.clock.Now()
	g.setStatus(func(s *Status) {
		s.Accepted++
		s.LastEventAt = n.ReceivedAt
	})
	g.deliver(n)
	return n, true, nil
}

// deliver calls every subscriber independently; one failing subscriber
// does not affect the others.
func (g *Gateway) deliver(n model.DealNotification) {
	g.mu.Lock()
	subs := make([]func(model.DealNotification), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("gateway: subscriber panicked", "agent", n.Agent.Name, "panic", r)
				}
			}()
			fn(n)
		}()
	}
}

func (g *Gateway) setStatus(update func(*Status)) {
	g.mu.Lock()
	update(&g.status)
	st := g.status
	g.mu.Unlock()

	if g.cfg.OnStatus != nil {
		g.cfg.OnStatus(st)
	}
}

func (g *Gateway) sleep(ctx context.Context, d time.Duration) bool {
	t := g.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Gateway) closeTransports() {
	for _, t := range g.transports {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Debug("gateway: close transport", "transport", t.Name(), "error", err)
			}
		}
	}
}
