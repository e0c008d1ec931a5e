// Command discotheque-play plays a library directory on the local sound card.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"discotheque/internal/audio"
	"discotheque/internal/config"
	"discotheque/internal/database"
	"discotheque/internal/library"
	"discotheque/internal/metadata"
	"discotheque/internal/player"
	"discotheque/pkg/models"

	"github.com/chzyer/readline"
)

const terminalProfile = "terminal"

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	root := flag.String("root", "", "library root directory (overrides config)")
	flag.Parse()

	if err := run(*configPath, *root, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "discotheque-play:", err)
		os.Exit(1)
	}
}

func run(configPath, root, dir string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := loadConfig(configPath, root)
	if err != nil {
		return err
	}

	logger, logFile, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logFile.Close()
	// the terminal belongs to the prompt unless a log file is configured
	if cfg.Logging.File == "" {
		logger.SetOutput(io.Discard)
	}

	extractor := metadata.NewExtractor(audio.SupportedFormats(), logger)
	browser, err := library.NewBrowser(cfg.Library.RootPath, extractor, library.WithLogger(logger))
	if err != nil {
		return err
	}
	playlist, err := browser.Playlist(dir)
	if err != nil {
		return fmt.Errorf("opening %q: %w", dir, err)
	}
	if playlist.Len() == 0 {
		return fmt.Errorf("no playable tracks in %q", library.Normalize(dir))
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "♪ ",
		AutoComplete: completer(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	out := audio.NewOutput(streamResolver(browser), audio.WithLogger(logger))
	defer out.Stop()

	view := NewTerminalView(rl.Stdout())
	ctrl := player.New(playlist, out, db.Preferences(terminalProfile), view,
		player.WithLogger(logger),
		player.WithAutoPlay(cfg.Player.AutoPlay),
		player.WithDefaults(cfg.Player.DefaultVolume, player.Theme(cfg.Player.DefaultTheme)),
		player.WithTrackHook(func(t models.Track) {
			if _, err := db.RecordPlay(terminalProfile, t); err != nil {
				logger.WithError(err).Warn("Failed to record play")
			}
		}),
	)
	defer ctrl.Close()
	out.OnEnd(ctrl.PlayNext)

	done := make(chan struct{})
	following := followState(ctrl, done, func(s player.State) {
		rl.SetPrompt(promptFor(s))
		rl.Refresh()
	})
	defer func() {
		close(done)
		<-following
	}()

	sh := &shell{ctrl: ctrl, view: view, out: rl.Stdout()}
	fmt.Fprintf(rl.Stdout(), "%d tracks in /%s\n", playlist.Len(), library.Normalize(dir))
	sh.list()
	fmt.Fprintln(rl.Stdout(), view.Controls())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			// EOF
			return nil
		}
		if err := sh.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(rl.Stderr(), err)
		}
	}
}

// loadConfig reads the configuration file, applies the -root override and
// validates the result, like the server does.
func loadConfig(configPath, root string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if root != "" {
		cfg.Library.RootPath = root
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// streamResolver maps the /stream/ links of the playlist back to library files
func streamResolver(browser *library.Browser) audio.Resolver {
	return func(src string) (string, error) {
		rel, err := url.PathUnescape(strings.TrimPrefix(src, "/stream/"))
		if err != nil {
			return "", fmt.Errorf("bad source %q: %w", src, err)
		}
		path, info, err := browser.Resolve(rel)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", rel)
		}
		return path, nil
	}
}
