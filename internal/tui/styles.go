package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy   = lipgloss.Color("#16213E")
	ColorBlue   = lipgloss.Color("#4DA3FF")
	ColorGreen  = lipgloss.Color("#3DDC84")
	ColorYellow = lipgloss.Color("#FFD34D")
	ColorOrange = lipgloss.Color("#FF9F40")
	ColorRed    = lipgloss.Color("#FF5A5A")
	ColorGold   = lipgloss.Color("#FFC107")
	ColorGray   = lipgloss.Color("#8A8F98")
	ColorWhite  = lipgloss.Color("#F5F7FA")
)

var (
	barStyle    = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)
	titleStyle  = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorGray)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorRed)
	leaderStyle = lipgloss.NewStyle().Foreground(ColorGold).Bold(true)
	rowStyle    = lipgloss.NewStyle().Foreground(ColorWhite)
)
