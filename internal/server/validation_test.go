package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"discotheque/internal/config"
	"discotheque/internal/library"

	"github.com/sirupsen/logrus"
)

func createTestMusicServer() *MusicServer {
	cfg := config.DefaultConfig()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	return &MusicServer{
		config: cfg,
		logger: logger,
	}
}

func TestValidateLimit(t *testing.T) {
	ms := createTestMusicServer()

	tests := []struct {
		name      string
		raw       string
		def       int
		want      int
		wantError bool
	}{
		{name: "default", raw: "", def: 50, want: 50},
		{name: "default above cap", raw: "", def: 9000, want: maxHistoryLimit},
		{name: "explicit", raw: "10", def: 50, want: 10},
		{name: "upper bound", raw: "500", def: 50, want: 500},
		{name: "too large", raw: "501", def: 50, wantError: true},
		{name: "zero", raw: "0", def: 50, wantError: true},
		{name: "negative", raw: "-3", def: 50, wantError: true},
		{name: "not a number", raw: "ten", def: 50, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ms.validateLimit(tt.raw, tt.def)

			if tt.wantError && err == nil {
				t.Errorf("validateLimit() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("validateLimit() unexpected error: %v", err)
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("validateLimit() = %d, want %d", got, tt.want)
			}
			if err != nil && err.Field != "limit" {
				t.Errorf("validateLimit() field = %q, want limit", err.Field)
			}
		})
	}
}

func TestRespondWithLibraryError(t *testing.T) {
	ms := createTestMusicServer()

	tests := []struct {
		err  error
		want int
	}{
		{library.ErrOutsideRoot, http.StatusForbidden},
		{fmt.Errorf("resolve: %w", library.ErrOutsideRoot), http.StatusForbidden},
		{library.ErrNotFound, http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)

			ms.respondWithLibraryError(rec, req, tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0B"},
		{512, "< 1KB"},
		{2048, "2KB"},
		{3 * 1024 * 1024, "3MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		header     string
		size       int64
		start, end int64
		ok         bool
	}{
		{"bytes=0-9", 100, 0, 9, true},
		{"bytes=90-", 100, 90, 99, true},
		{"bytes=-10", 100, 90, 99, true},
		{"bytes=-500", 100, 0, 99, true},
		{"bytes=50-500", 100, 50, 99, true},
		{"bytes=100-", 100, 0, 0, false},
		{"bytes=9-1", 100, 0, 0, false},
		{"bytes=0-1,4-5", 100, 0, 0, false},
		{"items=0-1", 100, 0, 0, false},
		{"bytes=abc", 100, 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := parseRange(tt.header, tt.size)
		if ok != tt.ok || (ok && (start != tt.start || end != tt.end)) {
			t.Errorf("parseRange(%q) = %d, %d, %v; want %d, %d, %v",
				tt.header, start, end, ok, tt.start, tt.end, tt.ok)
		}
	}
}

func TestShouldLogRequest(t *testing.T) {
	for path, want := range map[string]bool{
		"/":                 true,
		"/Jazz/":            true,
		"/stream/a.mp3":     true,
		"/static/style.css": false,
		"/cover/a.mp3":      false,
		"/health":           false,
	} {
		if got := shouldLogRequest(path); got != want {
			t.Errorf("shouldLogRequest(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	for secs, want := range map[int]string{
		0:    "",
		-5:   "",
		7:    "0:07",
		185:  "3:05",
		3725: "1:02:05",
	} {
		if got := formatDuration(secs); got != want {
			t.Errorf("formatDuration(%d) = %q, want %q", secs, got, want)
		}
	}
}
