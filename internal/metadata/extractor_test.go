package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeSilentWAV(t *testing.T, path string, seconds, sampleRate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, seconds*sampleRate),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestIsPlayable(t *testing.T) {
	extractor := NewExtractor([]string{".mp3", ".flac"}, nil)

	testCases := []struct {
		filename string
		expected bool
	}{
		{"song.mp3", true},
		{"song.MP3", true},
		{"song.flac", true},
		{"song.wav", false},
		{"cover.jpg", false},
		{"song", false},
		{"", false},
	}

	for _, tc := range testCases {
		if result := extractor.IsPlayable(tc.filename); result != tc.expected {
			t.Errorf("IsPlayable(%s): expected %v, got %v", tc.filename, tc.expected, result)
		}
	}
}

func TestGetContentType(t *testing.T) {
	testCases := []struct {
		filename string
		expected string
	}{
		{"song.mp3", "audio/mpeg"},
		{"song.MP3", "audio/mpeg"},
		{"song.flac", "audio/flac"},
		{"song.wav", "audio/wav"},
		{"song.m4a", "audio/mp4"},
		{"song.txt", "application/octet-stream"},
	}

	for _, tc := range testCases {
		if result := GetContentType(tc.filename); result != tc.expected {
			t.Errorf("GetContentType(%s): expected %s, got %s", tc.filename, tc.expected, result)
		}
	}
}

func TestGetImageMimeType(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
		{"GIF", []byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
		{"Unknown", []byte{0x00, 0x00, 0x00, 0x00}, "application/octet-stream"},
		{"Too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range testCases {
		if result := GetImageMimeType(tc.data); result != tc.expected {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.expected, result)
		}
	}
}

func TestDurationWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	writeSilentWAV(t, path, 2, 8000)

	extractor := NewExtractor([]string{".wav"}, nil)
	got, err := extractor.Duration(path)
	if err != nil {
		t.Fatalf("Duration() error: %v", err)
	}
	if got != 2 {
		t.Errorf("Duration() = %d, want 2", got)
	}
}

func TestReadWithoutTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}

	extractor := NewExtractor([]string{".mp3"}, nil)
	info := extractor.Read(path)
	if info.Album != "" || info.HasPicture {
		t.Errorf("Read() = %+v, want empty album and no picture", info)
	}
	if album := extractor.Album(path); album != "" {
		t.Errorf("Album() = %q, want empty", album)
	}
	if _, ok := extractor.Picture(path); ok {
		t.Error("Picture() should report no picture")
	}
	if _, err := extractor.Duration(filepath.Join(dir, "notes.txt")); err == nil {
		t.Error("Duration() of unsupported format should fail")
	}
}
