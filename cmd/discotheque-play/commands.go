package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"discotheque/internal/player"

	"github.com/chzyer/readline"
)

var errQuit = errors.New("quit")

// controller is the part of the player the shell drives
type controller interface {
	PlayIndex(i int)
	NextTrack()
	PrevTrack()
	Toggle(control player.Control)
	SetVolume(volume float64)
	State() player.State
	Playlist() player.Playlist
}

type shell struct {
	ctrl controller
	view *TerminalView
	out  io.Writer
}

const helpText = `commands:
  list           show the playlist
  play <n>       play track n
  next, prev     move through the playlist
  auto           toggle autoplay
  shuffle        toggle shuffle
  loop           toggle loop
  theme          toggle light/dark
  vol <0..1>     set the volume
  quit           leave`

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("play"),
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("auto"),
		readline.PcItem("shuffle"),
		readline.PcItem("loop"),
		readline.PcItem("theme"),
		readline.PcItem("vol"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// exec runs one command line. It returns errQuit when the user leaves.
func (s *shell) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "list", "ls":
		s.list()
	case "play", "p":
		if len(fields) < 2 {
			return fmt.Errorf("usage: play <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > s.ctrl.Playlist().Len() {
			return fmt.Errorf("no track %q", fields[1])
		}
		s.ctrl.PlayIndex(n - 1)
	case "next", "n":
		s.ctrl.NextTrack()
	case "prev":
		s.ctrl.PrevTrack()
	case "auto", "shuffle", "loop", "theme":
		control, _ := player.ParseControl(cmd)
		s.ctrl.Toggle(control)
		fmt.Fprintln(s.out, s.view.Controls())
	case "vol", "volume":
		if len(fields) < 2 {
			fmt.Fprintf(s.out, "volume %.2f\n", s.ctrl.State().Volume)
			return nil
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || v < 0 || v > 1 {
			return fmt.Errorf("volume must be between 0 and 1")
		}
		s.ctrl.SetVolume(v)
		fmt.Fprintf(s.out, "volume %.2f\n", s.ctrl.State().Volume)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *shell) list() {
	current := s.ctrl.State().CurrentIndex
	for i, t := range s.ctrl.Playlist().Tracks() {
		marker := "  "
		if i == current {
			marker = "▶ "
		}
		line := fmt.Sprintf("%s%3d  %s", marker, i+1, t.Name)
		if t.Album != "" {
			line += "  (" + t.Album + ")"
		}
		fmt.Fprintln(s.out, line)
	}
}
