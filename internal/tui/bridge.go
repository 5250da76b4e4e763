package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/dealboard/internal/display"
)

// DisplayChangedMsg tells the display page to re-read the display.
type DisplayChangedMsg struct{}

// Sender is the part of *tea.Program the bridge uses.
type Sender interface {
	Send(msg tea.Msg)
}

// Observable is satisfied by *display.Display.
type Observable interface {
	Observe(fn func(display.Event)) (cancel func())
}

// Bridge forwards display changes to the program. Bursts collapse into a
// single message so timer goroutines never wait on the UI. The returned
// func stops forwarding.
func Bridge(s Sender, o Observable) (stop func()) {
	dirty := make(chan struct{}, 1)
	done := make(chan struct{})

	cancel := o.Observe(func(display.Event) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-dirty:
				s.Send(DisplayChangedMsg{})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			close(done)
		})
	}
}
