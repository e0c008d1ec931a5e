package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"discotheque/internal/player"
	"discotheque/pkg/models"
)

type fakePlayback struct {
	mu     sync.Mutex
	src    string
	loop   bool
	volume float64
	plays  int
}

func (p *fakePlayback) SetSource(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
}

func (p *fakePlayback) SetLoop(loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
}

func (p *fakePlayback) Loop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

func (p *fakePlayback) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

func (p *fakePlayback) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *fakePlayback) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return nil
}

func (p *fakePlayback) source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func newTestShell(t *testing.T) (*shell, *fakePlayback, *player.MemoryStorage, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	playback := &fakePlayback{volume: 1}
	storage := player.NewMemoryStorage()
	view := NewTerminalView(&out)
	playlist := player.NewPlaylist([]models.Track{
		{Src: "/stream/a.mp3", Name: "a", Album: "First"},
		{Src: "/stream/b.mp3", Name: "b"},
		{Src: "/stream/c.mp3", Name: "c"},
	})
	ctrl := player.New(playlist, playback, storage, view)
	t.Cleanup(ctrl.Close)
	return &shell{ctrl: ctrl, view: view, out: &out}, playback, storage, &out
}

func TestShellPlayAndNavigate(t *testing.T) {
	sh, playback, _, out := newTestShell(t)

	if err := sh.exec("play 2"); err != nil {
		t.Fatalf("play 2: %v", err)
	}
	if got := playback.source(); got != "/stream/b.mp3" {
		t.Errorf("source = %q, want /stream/b.mp3", got)
	}
	if !strings.Contains(out.String(), "♪ b") {
		t.Errorf("now-playing panel not printed: %q", out.String())
	}

	for _, step := range []struct {
		cmd  string
		want string
	}{
		{"next", "/stream/c.mp3"},
		{"next", "/stream/a.mp3"},
		{"prev", "/stream/c.mp3"},
	} {
		if err := sh.exec(step.cmd); err != nil {
			t.Fatalf("%s: %v", step.cmd, err)
		}
		if got := playback.source(); got != step.want {
			t.Errorf("after %s source = %q, want %q", step.cmd, got, step.want)
		}
	}

	out.Reset()
	sh.exec("list")
	if !strings.Contains(out.String(), "▶   3  c") {
		t.Errorf("list does not mark the current track: %q", out.String())
	}
	if !strings.Contains(out.String(), "(First)") {
		t.Errorf("list does not show albums: %q", out.String())
	}
}

func TestShellRejectsBadInput(t *testing.T) {
	sh, playback, _, _ := newTestShell(t)

	for _, line := range []string{"play", "play 0", "play 4", "play x", "vol 2", "vol -1", "dance"} {
		if err := sh.exec(line); err == nil {
			t.Errorf("%q: expected an error", line)
		}
	}
	if playback.source() != "" {
		t.Errorf("a rejected command started playback")
	}
	if err := sh.exec("   "); err != nil {
		t.Errorf("blank line: %v", err)
	}
	if err := sh.exec("quit"); !errors.Is(err, errQuit) {
		t.Errorf("quit returned %v", err)
	}
}

func TestShellTogglesAndVolume(t *testing.T) {
	sh, playback, storage, out := newTestShell(t)

	sh.exec("loop")
	if !playback.Loop() {
		t.Error("loop not enabled")
	}
	if !strings.Contains(out.String(), "["+player.LabelLoopOn+"]") {
		t.Errorf("loop label not shown: %q", out.String())
	}

	sh.exec("theme")
	if sh.view.Theme() != player.ThemeDark {
		t.Errorf("theme = %q, want dark", sh.view.Theme())
	}
	if v, _ := storage.Get(player.ThemeKey); v != "dark" {
		t.Errorf("stored theme = %q, want dark", v)
	}

	if err := sh.exec("vol 0.25"); err != nil {
		t.Fatalf("vol: %v", err)
	}
	if playback.Volume() != 0.25 {
		t.Errorf("volume = %v, want 0.25", playback.Volume())
	}
	if v, _ := storage.Get(player.VolumeKey); v != "0.25" {
		t.Errorf("stored volume = %q, want 0.25", v)
	}
}

func TestViewControlsFollowLabels(t *testing.T) {
	var out bytes.Buffer
	view := NewTerminalView(&out)

	if view.Panel() != "" {
		t.Error("panel rendered before any track")
	}

	view.SetLabel(player.ControlShuffle, player.LabelShuffleOn, true)
	view.SetLabel(player.ControlAutoPlay, player.LabelAutoPlayOff, false)

	controls := view.Controls()
	auto := strings.Index(controls, player.LabelAutoPlayOff)
	shuffle := strings.Index(controls, player.LabelShuffleOn)
	if auto < 0 || shuffle < 0 || auto > shuffle {
		t.Errorf("controls = %q, want autoplay before shuffle", controls)
	}

	view.ShowTrack(models.Track{Name: "Blue in Green", Album: "Kind of Blue"})
	panel := view.Panel()
	for _, want := range []string{"Blue in Green", "Kind of Blue", player.LabelShuffleOn} {
		if !strings.Contains(panel, want) {
			t.Errorf("panel missing %q: %q", want, panel)
		}
	}
}
