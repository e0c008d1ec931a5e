package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"discotheque/internal/cache"
	"discotheque/internal/config"
	"discotheque/internal/database"
	"discotheque/internal/library"
	"discotheque/internal/metadata"
	"discotheque/internal/ngrok"
	"discotheque/internal/remote"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// MusicServer serves the shared library and drives browser players
type MusicServer struct {
	db           *database.Database
	config       *config.Config
	watcher      *fsnotify.Watcher
	watcherMu    sync.Mutex
	extractor    *metadata.Extractor
	browser      *library.Browser
	cache        *cache.LibraryCache
	hub          *remote.Hub
	stopHub      context.CancelFunc
	ngrokService *ngrok.Service
	templates    *template.Template
	logger       *logrus.Logger
	handler      http.Handler
	shutdown     sync.Once
}

// NewMusicServer creates a new music server instance
func NewMusicServer(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*MusicServer, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	extractor := metadata.NewExtractor(cfg.Library.PlayableFormats, logger)
	libraryCache := cache.NewLibraryCache(time.Duration(cfg.Library.CacheTTLSeconds) * time.Second)

	browser, err := library.NewBrowser(cfg.Library.RootPath, extractor,
		library.WithCache(libraryCache),
		library.WithBackgrounds(cfg.Library.Backgrounds),
		library.WithLogger(logger),
	)
	if err != nil {
		libraryCache.Close()
		return nil, fmt.Errorf("open library: %w", err)
	}

	templates, err := parseTemplates()
	if err != nil {
		libraryCache.Close()
		return nil, err
	}

	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokSvc = nil
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	ms := &MusicServer{
		db:           db,
		config:       cfg,
		extractor:    extractor,
		browser:      browser,
		cache:        libraryCache,
		hub:          remote.NewHub(logger),
		stopHub:      stopHub,
		ngrokService: ngrokSvc,
		templates:    templates,
		logger:       logger,
	}
	ms.handler = ms.setupRoutes()

	// player sockets register with the hub, so it runs for the server's lifetime
	go ms.hub.Run(hubCtx)
	return ms, nil
}

// Handler returns the HTTP handler with every middleware applied. It is
// usable as soon as NewMusicServer returns; call Shutdown when done.
func (ms *MusicServer) Handler() http.Handler {
	return ms.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (ms *MusicServer) Start(ctx context.Context) error {
	if ms.config.Library.WatchForChanges {
		if err := ms.startFileWatcher(); err != nil {
			ms.logger.WithError(err).Warn("Could not start file watcher")
		}
	}

	server := &http.Server{
		Addr:        ms.config.GetAddress(),
		Handler:     ms.handler,
		ReadTimeout: time.Duration(ms.config.Server.ReadTimeout) * time.Second,
	}

	scheme := "http"
	if ms.config.TLSEnabled() {
		scheme = "https"
	}
	localAddress := fmt.Sprintf("%s://%s", scheme, ms.config.GetAddress())

	if err := ms.ngrokService.StartTunnel(ctx, localAddress); err != nil {
		ms.logger.WithError(err).Warn("Could not start ngrok tunnel")
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if ms.config.TLSEnabled() {
			err = server.ListenAndServeTLS(ms.config.Server.CertFile, ms.config.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		errCh <- err
	}()

	ms.logger.WithFields(logrus.Fields{
		"address": localAddress,
		"root":    ms.browser.Root(),
		"watch":   ms.config.Library.WatchForChanges,
	}).Info("Discotheque server started")

	var serveErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			ms.logger.WithError(err).Warn("HTTP shutdown did not complete")
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	}

	ms.Shutdown()
	return serveErr
}

// Shutdown closes player sessions and releases the watcher, the tunnel and
// the caches. Calls after the first are no-ops.
func (ms *MusicServer) Shutdown() {
	ms.shutdown.Do(ms.shutdownOnce)
}

func (ms *MusicServer) shutdownOnce() {
	ms.logger.Info("Shutting down music server")

	ms.stopHub()
	<-ms.hub.Stopped()

	ms.stopFileWatcher()
	if err := ms.ngrokService.Stop(); err != nil {
		ms.logger.WithError(err).Warn("Error stopping ngrok tunnel")
	}
	ms.cache.Close()

	ms.logger.Info("Music server shutdown complete")
}

func (ms *MusicServer) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(webFS, "web/static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	mux.HandleFunc("GET /health", ms.handleHealthCheck)
	mux.HandleFunc("GET /stream/{path...}", ms.handleStream)
	mux.HandleFunc("GET /download/file/{path...}", ms.handleDownloadFile)
	mux.HandleFunc("GET /download/zip/{path...}", ms.handleDownloadZip)
	mux.HandleFunc("GET /cover/{path...}", ms.handleCover)
	mux.HandleFunc("GET /background/{name}", ms.handleBackground)

	mux.HandleFunc("GET /ws/player", ms.handlePlayerSocket)
	mux.HandleFunc("GET /api/player/sessions", ms.handleGetSessions)
	mux.HandleFunc("GET /api/history", ms.handleGetHistory)
	mux.HandleFunc("GET /api/listing/{path...}", ms.handleGetListing)
	mux.HandleFunc("GET /api/playlist/{path...}", ms.handleGetPlaylist)
	mux.HandleFunc("GET /api/config", ms.handleGetConfig)

	mux.HandleFunc("GET /{path...}", ms.handleIndex)

	var handler http.Handler = mux
	handler = ms.profileMiddleware(handler)
	handler = ms.basicAuthMiddleware(handler)
	handler = ms.corsMiddleware(handler)
	handler = ms.requestLoggingMiddleware(handler)
	handler = ms.panicRecoveryMiddleware(handler)
	return handler
}
