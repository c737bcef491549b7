package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ECFD65")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#DDDDDD"}).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})

	flashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	emptyBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"})

	headerRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#777777"}).
			Underline(true)

	channelStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")), // L1
		lipgloss.NewStyle().Foreground(lipgloss.Color("#ECFD65")), // L2
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5FD2")), // L3
	}
)
