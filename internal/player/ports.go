package player

import (
	"context"

	"discotheque/pkg/models"
)

// Storage is the persisted key-value store holding user preferences.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Playback is the media handle driven by the controller.
type Playback interface {
	SetSource(src string)
	SetLoop(loop bool)
	Loop() bool
	SetVolume(volume float64)
	Volume() float64
	// Play starts the current source. The returned error is the only
	// fallible step of a track change.
	Play(ctx context.Context) error
}

// View is the visible surface of the player.
type View interface {
	// ShowTrack displays title, album and cover and makes the player visible.
	ShowTrack(track models.Track)
	SetLabel(control Control, label string, active bool)
	SetTheme(theme Theme)
}

// Control identifies a toggle button
type Control string

const (
	ControlAutoPlay Control = "auto"
	ControlShuffle  Control = "shuffle"
	ControlLoop     Control = "loop"
	ControlTheme    Control = "theme"
)

// ParseControl maps a wire name to a Control.
func ParseControl(name string) (Control, bool) {
	switch c := Control(name); c {
	case ControlAutoPlay, ControlShuffle, ControlLoop, ControlTheme:
		return c, true
	}
	return "", false
}

// Theme is the page color scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Storage keys and defaults
const (
	VolumeKey     = "preferredVolume"
	ThemeKey      = "theme"
	DefaultVolume = 0.5
)

// Button labels
const (
	LabelAutoPlayOn  = "Lecture auto : ON"
	LabelAutoPlayOff = "Lecture auto : OFF"
	LabelShuffleOn   = "🔀 Aléatoire"
	LabelShuffleOff  = "🔀 Normal"
	LabelLoopOn      = "🔁 Oui"
	LabelLoopOff     = "🔁 Non"
	LabelThemeLight  = "Mode clair"  // offered while dark
	LabelThemeDark   = "Mode sombre" // offered while light
)

func autoPlayLabel(on bool) string {
	if on {
		return LabelAutoPlayOn
	}
	return LabelAutoPlayOff
}

func shuffleLabel(on bool) string {
	if on {
		return LabelShuffleOn
	}
	return LabelShuffleOff
}

func loopLabel(on bool) string {
	if on {
		return LabelLoopOn
	}
	return LabelLoopOff
}

func themeLabel(theme Theme) string {
	if theme == ThemeDark {
		return LabelThemeLight
	}
	return LabelThemeDark
}
