package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/dealboard/internal/access"
)

// Granter mounts the display once a code is accepted.
type Granter interface {
	Grant(ctx context.Context, code string) error
}

type grantResultMsg struct{ err error }

// AccessPage asks for the access code before the display mounts.
type AccessPage struct {
	ctx     context.Context
	granter Granter
	keys    KeyMap
	input   textinput.Model
	err     string
	busy    bool
}

// NewAccessPage creates the access prompt. ctx bounds the mounted display.
func NewAccessPage(ctx context.Context, g Granter, keys KeyMap) *AccessPage {
	in := textinput.New()
	in.Placeholder = "access code"
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.CharLimit = 64
	in.Width = 24
	in.Focus()
	return &AccessPage{ctx: ctx, granter: g, keys: keys, input: in}
}

func (p *AccessPage) ID() string { return PageAccess }

func (p *AccessPage) Init() tea.Cmd { return textinput.Blink }

func (p *AccessPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case grantResultMsg:
		p.busy = false
		if msg.err == nil {
			p.err = ""
			p.input.SetValue("")
			return nil, &PageNav{PageID: PageDisplay}
		}
		p.input.SetValue("")
		if errors.Is(msg.err, access.ErrInvalidCode) {
			p.err = "Invalid access code"
		} else {
			p.err = msg.err.Error()
		}
		return nil, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.ForceQuit):
			return tea.Quit, nil
		case key.Matches(msg, p.keys.Submit):
			code := p.input.Value()
			if p.busy || code == "" {
				return nil, nil
			}
			p.busy = true
			ctx, g := p.ctx, p.granter
			return func() tea.Msg { return grantResultMsg{err: g.Grant(ctx, code)} }, nil
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd, nil
}

func (p *AccessPage) View(width, height int) string {
	status := mutedStyle.Render("enter: unlock • ctrl+c: quit")
	if p.busy {
		status = mutedStyle.Render("checking…")
	} else if p.err != "" {
		status = errorStyle.Render(p.err)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Padding(1, 4).
		Render(lipgloss.JoinVertical(lipgloss.Center,
			renderBranding(),
			"",
			rowStyle.Render("This display is locked."),
			"",
			p.input.View(),
			"",
			status,
		))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
