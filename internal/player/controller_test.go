package player

import (
	"context"
	"errors"
	"testing"

	"discotheque/pkg/models"
)

type fakePlayback struct {
	src     string
	loop    bool
	volume  float64
	plays   int
	sources []string
	playErr error
	ops     int
}

func (f *fakePlayback) SetSource(src string) {
	f.src = src
	f.sources = append(f.sources, src)
	f.ops++
}
func (f *fakePlayback) SetLoop(loop bool) { f.loop = loop; f.ops++ }
func (f *fakePlayback) Loop() bool { return f.loop }
func (f *fakePlayback) SetVolume(v float64) { f.volume = v; f.ops++ }
func (f *fakePlayback) Volume() float64 { return f.volume }
func (f *fakePlayback) Play(ctx context.Context) error {
	f.plays++
	f.ops++
	return f.playErr
}

type fakeView struct {
	track   models.Track
	shown   int
	labels  map[Control]string
	active  map[Control]bool
	theme   Theme
	updates int
}

func newFakeView() *fakeView {
	return &fakeView{labels: map[Control]string{}, active: map[Control]bool{}}
}

func (v *fakeView) ShowTrack(t models.Track) { v.track = t; v.shown++ }
func (v *fakeView) SetLabel(c Control, label string, active bool) {
	v.labels[c] = label
	v.active[c] = active
	v.updates++
}
func (v *fakeView) SetTheme(t Theme) { v.theme = t }

func testTracks(names ...string) []models.Track {
	tracks := make([]models.Track, len(names))
	for i, n := range names {
		tracks[i] = models.Track{Src: "/stream/" + n + ".mp3", Cover: "/cover/" + n + ".mp3", Name: n, Album: "Album " + n}
	}
	return tracks
}

func newTestController(t *testing.T, names []string, opts ...Option) (*Controller, *fakePlayback, *fakeView, *MemoryStorage) {
	t.Helper()
	pb := &fakePlayback{}
	view := newFakeView()
	store := NewMemoryStorage()
	c := New(NewPlaylist(testTracks(names...)), pb, store, view, opts...)
	t.Cleanup(c.Close)
	return c, pb, view, store
}

func TestInitialization(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, pb, view, _ := newTestController(t, []string{"A"})

		if pb.volume != DefaultVolume {
			t.Errorf("volume = %v, want %v", pb.volume, DefaultVolume)
		}
		if view.theme != ThemeLight {
			t.Errorf("theme = %v, want light", view.theme)
		}
		if view.labels[ControlTheme] != LabelThemeDark {
			t.Errorf("theme label = %q, want %q", view.labels[ControlTheme], LabelThemeDark)
		}
		if view.labels[ControlAutoPlay] != LabelAutoPlayOn || !view.active[ControlAutoPlay] {
			t.Errorf("autoplay label = %q active=%v", view.labels[ControlAutoPlay], view.active[ControlAutoPlay])
		}
		if view.labels[ControlShuffle] != LabelShuffleOff {
			t.Errorf("shuffle label = %q", view.labels[ControlShuffle])
		}
		if view.labels[ControlLoop] != LabelLoopOff {
			t.Errorf("loop label = %q", view.labels[ControlLoop])
		}

		s := c.State()
		if s.CurrentIndex != -1 || !s.AutoPlay || s.Shuffle || s.Loop {
			t.Errorf("unexpected initial state: %+v", s)
		}
	})

	t.Run("persisted values", func(t *testing.T) {
		store := NewMemoryStorage()
		store.Set(VolumeKey, "0.3")
		store.Set(ThemeKey, "dark")
		pb := &fakePlayback{}
		view := newFakeView()
		c := New(NewPlaylist(nil), pb, store, view)
		defer c.Close()

		if pb.volume != 0.3 {
			t.Errorf("volume = %v, want 0.3", pb.volume)
		}
		if view.theme != ThemeDark {
			t.Errorf("theme = %v, want dark", view.theme)
		}
		if view.labels[ControlTheme] != LabelThemeLight {
			t.Errorf("theme label = %q, want %q", view.labels[ControlTheme], LabelThemeLight)
		}
	})

	t.Run("invalid volume falls back", func(t *testing.T) {
		for _, raw := range []string{"", "loud", "NaN", "1.5", "-0.1"} {
			store := NewMemoryStorage()
			store.Set(VolumeKey, raw)
			pb := &fakePlayback{}
			c := New(NewPlaylist(nil), pb, store, newFakeView())
			if pb.volume != DefaultVolume {
				t.Errorf("volume for %q = %v, want %v", raw, pb.volume, DefaultVolume)
			}
			c.Close()
		}
	})

	t.Run("configured defaults", func(t *testing.T) {
		_, pb, view, _ := newTestController(t, nil, WithDefaults(0.8, ThemeDark), WithAutoPlay(false))
		if pb.volume != 0.8 {
			t.Errorf("volume = %v, want 0.8", pb.volume)
		}
		if view.theme != ThemeDark {
			t.Errorf("theme = %v, want dark", view.theme)
		}
		if view.labels[ControlAutoPlay] != LabelAutoPlayOff {
			t.Errorf("autoplay label = %q", view.labels[ControlAutoPlay])
		}
	})
}

func TestPlayAudio(t *testing.T) {
	c, pb, view, _ := newTestController(t, []string{"A", "B", "C"})

	c.ToggleLoop()
	if !pb.loop || view.labels[ControlLoop] != LabelLoopOn {
		t.Fatalf("loop not enabled: loop=%v label=%q", pb.loop, view.labels[ControlLoop])
	}

	c.PlayAudio("/stream/B.mp3", "/cover/B.mp3", "B", "")

	s := c.State()
	if s.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", s.CurrentIndex)
	}
	if pb.loop {
		t.Error("loop should be reset on track change")
	}
	if view.labels[ControlLoop] != LabelLoopOff {
		t.Errorf("loop label = %q, want %q", view.labels[ControlLoop], LabelLoopOff)
	}
	if pb.src != "/stream/B.mp3" || pb.plays != 1 {
		t.Errorf("src=%q plays=%d", pb.src, pb.plays)
	}
	if view.track.Name != "B" || view.track.Album != "" || view.track.Cover != "/cover/B.mp3" || view.shown != 1 {
		t.Errorf("unexpected view track %+v (shown %d)", view.track, view.shown)
	}
}

func TestPlayAudioUnknownSource(t *testing.T) {
	c, pb, _, _ := newTestController(t, []string{"A"})

	c.PlayAudio("/stream/elsewhere.mp3", "", "elsewhere", "")
	if got := c.State().CurrentIndex; got != -1 {
		t.Errorf("CurrentIndex = %d, want -1", got)
	}
	if pb.src != "/stream/elsewhere.mp3" {
		t.Errorf("src = %q", pb.src)
	}

	// next from "none" starts at the first track
	c.NextTrack()
	if got := c.State().CurrentIndex; got != 0 {
		t.Errorf("CurrentIndex after next = %d, want 0", got)
	}
}

func TestPlayRejectionIsSwallowed(t *testing.T) {
	c, pb, view, _ := newTestController(t, []string{"A", "B"})
	pb.playErr = errors.New("autoplay blocked")

	c.NextTrack()

	if got := c.State().CurrentIndex; got != 0 {
		t.Errorf("CurrentIndex = %d, want 0", got)
	}
	if view.shown != 1 {
		t.Errorf("track should still be shown, shown = %d", view.shown)
	}
	if pb.plays != 1 {
		t.Errorf("plays = %d, want exactly one attempt", pb.plays)
	}
}

func TestNextTrackSequential(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	c, _, _, _ := newTestController(t, names)

	c.PlayIndex(2)
	start := c.State().CurrentIndex
	for i := 1; i <= len(names); i++ {
		c.NextTrack()
		want := (start + i) % len(names)
		if got := c.State().CurrentIndex; got != want {
			t.Fatalf("step %d: CurrentIndex = %d, want %d", i, got, want)
		}
	}
	if got := c.State().CurrentIndex; got != start {
		t.Errorf("after %d steps CurrentIndex = %d, want %d", len(names), got, start)
	}
}

func TestPrevTrackIgnoresShuffle(t *testing.T) {
	for _, shuffle := range []bool{false, true} {
		c, _, _, _ := newTestController(t, []string{"A", "B", "C"}, WithRandom(func(n int) int { return n - 1 }))
		if shuffle {
			c.ToggleShuffle()
		}

		c.PlayIndex(0)
		c.PrevTrack()
		if got := c.State().CurrentIndex; got != 2 {
			t.Errorf("shuffle=%v: CurrentIndex = %d, want 2", shuffle, got)
		}
		c.PrevTrack()
		if got := c.State().CurrentIndex; got != 1 {
			t.Errorf("shuffle=%v: CurrentIndex = %d, want 1", shuffle, got)
		}
	}
}

func TestEmptyPlaylistNavigation(t *testing.T) {
	c, pb, view, _ := newTestController(t, nil)
	opsBefore := pb.ops
	labelsBefore := view.updates
	before := c.State()

	c.NextTrack()
	c.PrevTrack()
	c.PlayNext()

	after := c.State()
	if pb.ops != opsBefore {
		t.Errorf("media operations performed on empty playlist: %d", pb.ops-opsBefore)
	}
	if view.updates != labelsBefore || view.shown != 0 {
		t.Error("view changed on empty playlist")
	}
	if after.CurrentIndex != before.CurrentIndex || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
}

func TestScenarioNextThenPrev(t *testing.T) {
	c, _, view, _ := newTestController(t, []string{"A", "B", "C"})
	c.PlayIndex(0)

	c.NextTrack()
	if got := c.State().CurrentIndex; got != 1 || view.track.Name != "B" {
		t.Errorf("after next: index %d track %q, want 1 B", got, view.track.Name)
	}

	c.PrevTrack()
	if got := c.State().CurrentIndex; got != 0 || view.track.Name != "A" {
		t.Errorf("after prev: index %d track %q, want 0 A", got, view.track.Name)
	}
}

func TestShuffleSingleTrack(t *testing.T) {
	c, pb, _, _ := newTestController(t, []string{"A"})
	c.ToggleShuffle()

	for i := 0; i < 20; i++ {
		c.NextTrack()
		if got := c.State().CurrentIndex; got != 0 {
			t.Fatalf("CurrentIndex = %d, want 0", got)
		}
	}
	if pb.plays != 20 {
		t.Errorf("plays = %d, want 20", pb.plays)
	}
}

func TestShuffleUsesRandomSource(t *testing.T) {
	picks := []int{3, 3, 0}
	c, _, _, _ := newTestController(t, []string{"A", "B", "C", "D"}, WithRandom(func(n int) int {
		p := picks[0]
		picks = picks[1:]
		return p
	}))
	c.ToggleShuffle()

	for _, want := range []int{3, 3, 0} {
		c.NextTrack()
		if got := c.State().CurrentIndex; got != want {
			t.Errorf("CurrentIndex = %d, want %d", got, want)
		}
	}
}

func TestToggleShuffleKeepsPlaylistOrder(t *testing.T) {
	c, _, view, _ := newTestController(t, []string{"A", "B", "C"})
	before := c.Playlist().Tracks()

	c.ToggleShuffle()
	if view.labels[ControlShuffle] != LabelShuffleOn {
		t.Errorf("label = %q", view.labels[ControlShuffle])
	}
	after := c.Playlist().Tracks()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("playlist reordered at %d", i)
		}
	}

	c.ToggleShuffle()
	if view.labels[ControlShuffle] != LabelShuffleOff {
		t.Errorf("label = %q", view.labels[ControlShuffle])
	}
}

func TestPlayNext(t *testing.T) {
	t.Run("autoplay on advances", func(t *testing.T) {
		c, _, _, _ := newTestController(t, []string{"A", "B"})
		c.PlayIndex(0)
		c.PlayNext()
		if got := c.State().CurrentIndex; got != 1 {
			t.Errorf("CurrentIndex = %d, want 1", got)
		}
	})

	t.Run("autoplay off stops", func(t *testing.T) {
		c, pb, _, _ := newTestController(t, []string{"A", "B"})
		c.PlayIndex(0)
		c.ToggleAutoPlay()
		plays := pb.plays

		c.PlayNext()
		if got := c.State().CurrentIndex; got != 0 {
			t.Errorf("CurrentIndex = %d, want 0", got)
		}
		if pb.plays != plays {
			t.Error("no playback expected with autoplay off")
		}
	})
}

func TestToggleAutoPlay(t *testing.T) {
	c, _, view, _ := newTestController(t, []string{"A"})

	c.ToggleAutoPlay()
	if view.labels[ControlAutoPlay] != LabelAutoPlayOff || view.active[ControlAutoPlay] {
		t.Errorf("label = %q active = %v", view.labels[ControlAutoPlay], view.active[ControlAutoPlay])
	}
	if c.State().AutoPlay {
		t.Error("autoplay should be off")
	}

	c.ToggleAutoPlay()
	if view.labels[ControlAutoPlay] != LabelAutoPlayOn || !view.active[ControlAutoPlay] {
		t.Errorf("label = %q active = %v", view.labels[ControlAutoPlay], view.active[ControlAutoPlay])
	}
}

func TestToggleLoopOnlyTouchesLoop(t *testing.T) {
	c, pb, view, _ := newTestController(t, []string{"A", "B"})
	c.PlayIndex(1)
	before := c.State()

	c.ToggleLoop()
	after := c.State()

	if !pb.loop || !after.Loop || view.labels[ControlLoop] != LabelLoopOn {
		t.Errorf("loop = %v, label = %q", pb.loop, view.labels[ControlLoop])
	}
	if after.CurrentIndex != before.CurrentIndex || after.AutoPlay != before.AutoPlay || after.Shuffle != before.Shuffle {
		t.Errorf("loop toggle changed other state: before %+v after %+v", before, after)
	}

	c.ToggleLoop()
	if pb.loop || view.labels[ControlLoop] != LabelLoopOff {
		t.Errorf("loop = %v, label = %q", pb.loop, view.labels[ControlLoop])
	}
}

func TestToggleTheme(t *testing.T) {
	c, _, view, store := newTestController(t, nil)

	c.ToggleTheme()
	if view.theme != ThemeDark || view.labels[ControlTheme] != LabelThemeLight {
		t.Errorf("theme = %v label = %q", view.theme, view.labels[ControlTheme])
	}
	if v, _ := store.Get(ThemeKey); v != "dark" {
		t.Errorf("persisted theme = %q, want dark", v)
	}

	c.ToggleTheme()
	if view.theme != ThemeLight || view.labels[ControlTheme] != LabelThemeDark {
		t.Errorf("theme = %v label = %q", view.theme, view.labels[ControlTheme])
	}
	if v, _ := store.Get(ThemeKey); v != "light" {
		t.Errorf("persisted theme = %q, want light", v)
	}
}

func TestVolumeRoundTrip(t *testing.T) {
	store := NewMemoryStorage()
	pb := &fakePlayback{}
	c := New(NewPlaylist(nil), pb, store, newFakeView())

	// user drags the slider, the handle raises a change event
	pb.volume = 0.75
	c.OnVolumeChange()
	c.Close()

	reloaded := &fakePlayback{}
	c2 := New(NewPlaylist(nil), reloaded, store, newFakeView())
	defer c2.Close()

	if reloaded.volume != 0.75 {
		t.Errorf("volume after reload = %v, want 0.75", reloaded.volume)
	}
	if raw, _ := store.Get(VolumeKey); raw != "0.75" {
		t.Errorf("persisted volume = %q, want 0.75", raw)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	c, pb, _, store := newTestController(t, nil)

	c.SetVolume(1.7)
	if pb.volume != 1 {
		t.Errorf("volume = %v, want 1", pb.volume)
	}
	c.SetVolume(-2)
	if pb.volume != 0 {
		t.Errorf("volume = %v, want 0", pb.volume)
	}
	if raw, _ := store.Get(VolumeKey); raw != "0" {
		t.Errorf("persisted volume = %q, want 0", raw)
	}
}

func TestToggleDispatch(t *testing.T) {
	c, pb, _, _ := newTestController(t, []string{"A"})

	c.Toggle(ControlAutoPlay)
	c.Toggle(ControlShuffle)
	c.Toggle(ControlLoop)
	c.Toggle(ControlTheme)

	s := c.State()
	if s.AutoPlay || !s.Shuffle || !pb.loop || s.Theme != ThemeDark {
		t.Errorf("unexpected state after toggles: %+v", s)
	}
}

func TestTrackHook(t *testing.T) {
	var started []string
	c, _, _, _ := newTestController(t, []string{"A", "B"}, WithTrackHook(func(tr models.Track) {
		started = append(started, tr.Name)
	}))

	c.NextTrack()
	c.NextTrack()
	if len(started) != 2 || started[0] != "A" || started[1] != "B" {
		t.Errorf("started = %v", started)
	}
}

func TestSubscribe(t *testing.T) {
	c, _, _, _ := newTestController(t, []string{"A", "B"})
	ch := c.Subscribe()

	c.NextTrack()
	select {
	case s := <-ch:
		if s.CurrentIndex != 0 || s.Track == nil || s.Track.Name != "A" {
			t.Errorf("unexpected snapshot %+v", s)
		}
	default:
		t.Fatal("expected a state update")
	}

	c.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestCloseStopsPlayback(t *testing.T) {
	c, pb, _, _ := newTestController(t, []string{"A"})
	ch := c.Subscribe()
	c.Close()

	if _, ok := <-ch; ok {
		t.Error("listeners should be closed")
	}
	c.NextTrack()
	if pb.plays != 0 {
		t.Error("closed controller must not start playback")
	}
}

func TestSlowListenerIsDropped(t *testing.T) {
	c, _, _, _ := newTestController(t, []string{"A"})
	slow := c.Subscribe()

	for i := 0; i < listenerBuffer+1; i++ {
		c.ToggleShuffle()
	}

	received := 0
	for range slow {
		received++
	}
	if received != listenerBuffer {
		t.Errorf("received %d snapshots before the drop, want %d", received, listenerBuffer)
	}

	// a fresh subscription keeps working
	ch := c.Subscribe()
	c.ToggleShuffle()
	if s := <-ch; s.Shuffle {
		t.Errorf("shuffle = %v after %d toggles, want false", s.Shuffle, listenerBuffer+2)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	c, _, _, _ := newTestController(t, []string{"A"})
	c.Close()

	if !c.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, ok := <-c.Subscribe(); ok {
		t.Error("subscription on a closed controller should be closed")
	}
}

func TestPlaylistFromEntries(t *testing.T) {
	entries := []models.FileEntry{
		{DisplayName: "one", StreamLink: "/stream/one.mp3", CoverLink: "/cover/one.mp3", Playable: true, Album: "X"},
		{DisplayName: "notes", StreamLink: "/stream/notes.txt", Playable: false},
		{DisplayName: "two", StreamLink: "/stream/two.flac", CoverLink: "/cover/two.flac", Playable: true},
	}

	p := PlaylistFromEntries(entries)
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	if tr, _ := p.At(0); tr.Name != "one" || tr.Album != "X" || tr.Src != "/stream/one.mp3" {
		t.Errorf("At(0) = %+v", tr)
	}
	if i := p.IndexOf("/stream/two.flac"); i != 1 {
		t.Errorf("IndexOf = %d, want 1", i)
	}
	if i := p.IndexOf("/stream/notes.txt"); i != -1 {
		t.Errorf("IndexOf non playable = %d, want -1", i)
	}
	if _, ok := p.At(5); ok {
		t.Error("At out of range should fail")
	}
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		name string
		want Control
		ok   bool
	}{
		{"auto", ControlAutoPlay, true},
		{"shuffle", ControlShuffle, true},
		{"loop", ControlLoop, true},
		{"theme", ControlTheme, true},
		{"volume", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseControl(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseControl(%q) = %q, %v", tt.name, got, ok)
		}
	}
}
