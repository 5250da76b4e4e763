// Package access gates the display behind an access code for the lifetime
// of the process.
package access

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCode is returned for a wrong access code.
var ErrInvalidCode = errors.New("access: invalid code")

// Gate holds the session grant. Nothing is persisted: a restart asks again.
type Gate struct {
	hash []byte

	mu       sync.RWMutex
	granted  bool
	failures int
}

// NewGate creates a gate for a bcrypt hash. An empty hash disables the gate.
func NewGate(hash string) (*Gate, error) {
	hash = strings.TrimSpace(hash)
	g := &Gate{}
	if hash == "" {
		g.granted = true
		return g, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("access: bad code hash: %w", err)
	}
	g.hash = []byte(hash)
	return g, nil
}

// Required reports whether a code must be entered.
func (g *Gate) Required() bool { return len(g.hash) > 0 }

// Granted reports whether the session has access.
func (g *Gate) Granted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.granted
}

// Failures returns the number of rejected attempts.
func (g *Gate) Failures() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.failures
}

// Attempt checks code and grants access on a match.
func (g *Gate) Attempt(code string) error {
	if g.Granted() {
		return nil
	}
	err := bcrypt.CompareHashAndPassword(g.hash, []byte(strings.TrimSpace(code)))

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.failures++
		return ErrInvalidCode
	}
	g.granted = true
	return nil
}

// HashCode returns the bcrypt hash to put in the access-code-hash setting.
func HashCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errors.New("access: empty code")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
