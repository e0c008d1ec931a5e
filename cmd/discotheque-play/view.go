package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"discotheque/internal/player"
	"discotheque/pkg/models"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Title    lipgloss.Style
	Album    lipgloss.Style
	Cover    lipgloss.Style
	Active   lipgloss.Style
	Inactive lipgloss.Style
	Border   lipgloss.Style
}

func lightPalette() palette {
	return palette{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("18")),
		Album: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		Cover: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("25")),
		Inactive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("25")).
			Padding(0, 2),
	}
}

func darkPalette() palette {
	return palette{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		Album: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Italic(true),
		Cover: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		Inactive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
}

type label struct {
	text   string
	active bool
}

var controlOrder = []player.Control{
	player.ControlAutoPlay,
	player.ControlShuffle,
	player.ControlLoop,
	player.ControlTheme,
}

// TerminalView renders the now-playing panel and the control labels
type TerminalView struct {
	mu     sync.Mutex
	out    io.Writer
	theme  player.Theme
	styles palette
	track  *models.Track
	labels map[player.Control]label
}

// NewTerminalView writes to out
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{
		out:    out,
		theme:  player.ThemeLight,
		styles: lightPalette(),
		labels: make(map[player.Control]label),
	}
}

// ShowTrack prints the now-playing panel
func (v *TerminalView) ShowTrack(track models.Track) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.track = &track
	fmt.Fprintln(v.out, v.panelLocked())
}

func (v *TerminalView) SetLabel(control player.Control, text string, active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.labels[control] = label{text: text, active: active}
}

func (v *TerminalView) SetTheme(theme player.Theme) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.theme = theme
	if theme == player.ThemeDark {
		v.styles = darkPalette()
	} else {
		v.styles = lightPalette()
	}
}

// Theme returns the current theme
func (v *TerminalView) Theme() player.Theme {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.theme
}

// Controls renders the four control labels on one line
func (v *TerminalView) Controls() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controlsLocked()
}

func (v *TerminalView) controlsLocked() string {
	parts := make([]string, 0, len(controlOrder))
	for _, c := range controlOrder {
		l, ok := v.labels[c]
		if !ok {
			continue
		}
		style := v.styles.Inactive
		if l.active {
			style = v.styles.Active
		}
		parts = append(parts, style.Render("["+l.text+"]"))
	}
	return strings.Join(parts, " ")
}

// Panel renders the now-playing block, or an empty string before any track
func (v *TerminalView) Panel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.track == nil {
		return ""
	}
	return v.panelLocked()
}

func (v *TerminalView) panelLocked() string {
	lines := []string{v.styles.Title.Render("♪ " + v.track.Name)}
	if v.track.Album != "" {
		lines = append(lines, v.styles.Album.Render(v.track.Album))
	}
	if v.track.Cover != "" {
		lines = append(lines, v.styles.Cover.Render(v.track.Cover))
	}
	lines = append(lines, "", v.controlsLocked())
	return v.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
