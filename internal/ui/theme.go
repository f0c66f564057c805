package ui

import "github.com/charmbracelet/lipgloss"

var (
	Navy   = lipgloss.Color("#1e3a8a")
	Blue   = lipgloss.Color("#2563eb")
	Green  = lipgloss.Color("#16a34a")
	Amber  = lipgloss.Color("#d97706")
	Red    = lipgloss.Color("#dc2626")
	Gray   = lipgloss.Color("#6b7280")
	Light  = lipgloss.Color("#e5e7eb")
	Subtle = lipgloss.Color("#9ca3af")

	Header = lipgloss.NewStyle().Foreground(Light).Background(Navy).Bold(true).Padding(0, 2)
	Title  = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	Label  = lipgloss.NewStyle().Bold(true)
	Muted  = lipgloss.NewStyle().Foreground(Gray)

	StepActive = lipgloss.NewStyle().Foreground(Light).Background(Blue).Bold(true).Padding(0, 1)
	StepDone   = lipgloss.NewStyle().Foreground(Green).Bold(true).Padding(0, 1)
	StepLocked = lipgloss.NewStyle().Foreground(Subtle).Padding(0, 1)

	Critical = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Urgent   = lipgloss.NewStyle().Foreground(Light).Background(Red).Bold(true).Padding(0, 1)
	Warning  = lipgloss.NewStyle().Foreground(Amber)
	Success  = lipgloss.NewStyle().Foreground(Green)
	Failure  = lipgloss.NewStyle().Foreground(Red)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Subtle).
		Padding(0, 1)
)
