// Package player implements the transport logic of the audio player: track
// selection, next/previous navigation, autoplay, shuffle, loop, theme and
// volume persistence. The media element, the preference store and the
// visible controls are reached through the Playback, Storage and View ports.
package player

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"discotheque/pkg/models"

	"github.com/sirupsen/logrus"
)

// Controller owns the state of one player instance. Its operations are
// serialized, so events coming from different sources never interleave.
type Controller struct {
	mu sync.Mutex

	playlist Playlist
	playback Playback
	storage  Storage
	view     View
	logger   *logrus.Logger
	intn     func(n int) int
	onTrack  func(models.Track)

	currentIndex int
	current      *models.Track
	autoPlay     bool
	shuffle      bool
	volume       float64
	theme        Theme
	updatedAt    time.Time

	defaultVolume float64
	defaultTheme  Theme

	ctx        context.Context
	cancel     context.CancelFunc
	playCancel context.CancelFunc
	closed     bool

	listeners []chan State
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger used for swallowed errors
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRandom replaces the shuffle source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(c *Controller) { c.intn = intn }
}

// WithAutoPlay sets the initial autoplay flag
func WithAutoPlay(on bool) Option {
	return func(c *Controller) { c.autoPlay = on }
}

// WithDefaults sets the volume and theme used when nothing is persisted
func WithDefaults(volume float64, theme Theme) Option {
	return func(c *Controller) {
		if validVolume(volume) {
			c.defaultVolume = volume
		}
		if theme == ThemeDark || theme == ThemeLight {
			c.defaultTheme = theme
		}
	}
}

// WithTrackHook registers a function called every time a track starts
func WithTrackHook(fn func(models.Track)) Option {
	return func(c *Controller) { c.onTrack = fn }
}

// New creates a controller and initializes it: the persisted volume is
// applied to the playback handle, the persisted theme to the view, and every
// toggle label is rendered.
func New(playlist Playlist, playback Playback, storage Storage, view View, opts ...Option) *Controller {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Controller{
		playlist:      playlist,
		playback:      playback,
		storage:       storage,
		view:          view,
		logger:        discard,
		intn:          rand.IntN,
		currentIndex:  -1,
		autoPlay:      true,
		defaultVolume: DefaultVolume,
		defaultTheme:  ThemeLight,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = c.loadVolume()
	c.playback.SetVolume(c.volume)

	c.theme = c.loadTheme()
	c.view.SetTheme(c.theme)
	c.view.SetLabel(ControlTheme, themeLabel(c.theme), c.theme == ThemeDark)
	c.view.SetLabel(ControlAutoPlay, autoPlayLabel(c.autoPlay), c.autoPlay)
	c.view.SetLabel(ControlShuffle, shuffleLabel(c.shuffle), c.shuffle)
	loop := c.playback.Loop()
	c.view.SetLabel(ControlLoop, loopLabel(loop), loop)

	c.updatedAt = time.Now()
	return c
}

func (c *Controller) loadVolume() float64 {
	raw, ok := c.storage.Get(VolumeKey)
	if !ok || raw == "" {
		return c.defaultVolume
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !validVolume(v) {
		c.logger.WithField("value", raw).Debug("Ignoring invalid persisted volume")
		return c.defaultVolume
	}
	return v
}

func (c *Controller) loadTheme() Theme {
	raw, ok := c.storage.Get(ThemeKey)
	if !ok || raw == "" {
		return c.defaultTheme
	}
	if Theme(raw) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func validVolume(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Playlist returns the controller's playlist
func (c *Controller) Playlist() Playlist {
	return c.playlist
}

// PlayAudio switches to the given track and starts playback. The current
// index becomes the position of src in the playlist, or -1. Loop is reset on
// every track change. A rejected playback is ignored.
func (c *Controller) PlayAudio(src, cover, title, album string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playAudioLocked(src, cover, title, album)
}

func (c *Controller) playAudioLocked(src, cover, title, album string) {
	if c.closed {
		return
	}
	c.currentIndex = c.playlist.IndexOf(src)

	c.playback.SetSource(src)
	c.playback.SetLoop(false)
	c.view.SetLabel(ControlLoop, LabelLoopOff, false)

	track := models.Track{Src: src, Cover: cover, Name: title, Album: album}
	c.current = &track
	c.view.ShowTrack(track)

	// a new track supersedes any play attempt still in flight
	if c.playCancel != nil {
		c.playCancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.playCancel = cancel
	if err := c.playback.Play(ctx); err != nil {
		c.logger.WithError(err).WithField("src", src).Debug("Playback rejected")
	}

	if c.onTrack != nil {
		c.onTrack(track)
	}
	c.changedLocked()
}

func (c *Controller) playIndexLocked(i int) {
	t, ok := c.playlist.At(i)
	if !ok {
		return
	}
	c.playAudioLocked(t.Src, t.Cover, t.Name, t.Album)
}

// PlayIndex plays the i-th track of the playlist. Out of range indices are ignored.
func (c *Controller) PlayIndex(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playIndexLocked(i)
}

// NextTrack advances to the next track, or to a random one when shuffle is on.
func (c *Controller) NextTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextTrackLocked()
}

func (c *Controller) nextTrackLocked() {
	n := c.playlist.Len()
	if n == 0 {
		return
	}
	var next int
	if c.shuffle {
		next = c.intn(n)
	} else {
		next = (c.currentIndex + 1) % n
	}
	c.playIndexLocked(next)
}

// PrevTrack goes back one track. Shuffle does not apply.
func (c *Controller) PrevTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.playlist.Len()
	if n == 0 {
		return
	}
	c.playIndexLocked((c.currentIndex - 1 + n) % n)
}

// PlayNext handles the end of a track: it advances only when autoplay is on.
func (c *Controller) PlayNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoPlay {
		c.nextTrackLocked()
	}
}

// ToggleAutoPlay flips autoplay
func (c *Controller) ToggleAutoPlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoPlay = !c.autoPlay
	c.view.SetLabel(ControlAutoPlay, autoPlayLabel(c.autoPlay), c.autoPlay)
	c.changedLocked()
}

// ToggleShuffle flips shuffle. The playlist order is left untouched.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shuffle = !c.shuffle
	c.view.SetLabel(ControlShuffle, shuffleLabel(c.shuffle), c.shuffle)
	c.changedLocked()
}

// ToggleLoop flips the native loop flag of the playback handle
func (c *Controller) ToggleLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	loop := !c.playback.Loop()
	c.playback.SetLoop(loop)
	c.view.SetLabel(ControlLoop, loopLabel(loop), loop)
	c.changedLocked()
}

// ToggleTheme switches between light and dark and persists the choice
func (c *Controller) ToggleTheme() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.theme == ThemeDark {
		c.theme = ThemeLight
	} else {
		c.theme = ThemeDark
	}
	c.view.SetTheme(c.theme)
	if err := c.storage.Set(ThemeKey, string(c.theme)); err != nil {
		c.logger.WithError(err).Warn("Failed to persist theme")
	}
	c.view.SetLabel(ControlTheme, themeLabel(c.theme), c.theme == ThemeDark)
	c.changedLocked()
}

// Toggle dispatches to the toggle operation of a control
func (c *Controller) Toggle(control Control) {
	switch control {
	case ControlAutoPlay:
		c.ToggleAutoPlay()
	case ControlShuffle:
		c.ToggleShuffle()
	case ControlLoop:
		c.ToggleLoop()
	case ControlTheme:
		c.ToggleTheme()
	}
}

// OnVolumeChange persists the current volume of the playback handle. It is
// called for every volume change event, user or programmatic.
func (c *Controller) OnVolumeChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistVolumeLocked(c.playback.Volume())
}

// SetVolume applies a volume to the playback handle and persists it, for
// handles that do not raise their own change events.
func (c *Controller) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if math.IsNaN(volume) {
		return
	}
	volume = math.Max(0, math.Min(1, volume))
	c.playback.SetVolume(volume)
	c.persistVolumeLocked(c.playback.Volume())
}

func (c *Controller) persistVolumeLocked(volume float64) {
	c.volume = volume
	if err := c.storage.Set(VolumeKey, strconv.FormatFloat(volume, 'f', -1, 64)); err != nil {
		c.logger.WithError(err).Warn("Failed to persist volume")
	}
	c.changedLocked()
}

// Close tears the controller down: in-flight playback is cancelled and
// subscribers are released. Persisted preferences are kept.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.closeListenersLocked()
}

// Closed reports whether Close has been called
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
