package server

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"discotheque/internal/metadata"
)

const (
	// Buffer size for streaming (64KB)
	streamBufferSize = 64 * 1024
)

// handleStream serves an audio file inline so the browser can play and seek it
func (ms *MusicServer) handleStream(w http.ResponseWriter, r *http.Request) {
	path, info, err := ms.browser.Resolve(r.PathValue("path"))
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	if info.IsDir() {
		ms.respondWithError(w, r, http.StatusNotFound, "Not a file", nil)
		return
	}
	ms.serveFile(w, r, path, false)
}

// serveFile streams path with its audio content type, as an attachment or inline
func (ms *MusicServer) serveFile(w http.ResponseWriter, r *http.Request, path string, attachment bool) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": filepath.Base(path),
	}))

	if err := ms.OptimizedStreamHandler(w, r, path, metadata.GetContentType(path)); err != nil {
		ms.logger.WithError(err).WithField("file_path", path).Warn("Streaming failed")
	}
}

// OptimizedStreamHandler provides buffered streaming with caching and single range support
func (ms *MusicServer) OptimizedStreamHandler(w http.ResponseWriter, r *http.Request, filePath string, contentType string) error {
	stat, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error reading file info: %w", err)
	}

	fileSize := stat.Size()
	etag := fmt.Sprintf(`"%d-%d"`, stat.ModTime().Unix(), fileSize)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("ETag", etag)

	if checkNotModified(w, r, etag) {
		return nil
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		return handleRangeRequest(w, file, fileSize, rangeHeader)
	}

	w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
	if r.Method == http.MethodHead {
		return nil
	}

	bufferedReader := bufio.NewReaderSize(file, streamBufferSize)
	buffer := make([]byte, streamBufferSize)

	if _, err = io.CopyBuffer(w, bufferedReader, buffer); err != nil {
		return fmt.Errorf("error streaming file: %w", err)
	}
	return nil
}

// checkNotModified answers 304 when the client already has this version
func checkNotModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

// handleRangeRequest implements single-range byte serving for seeking
func handleRangeRequest(w http.ResponseWriter, file *os.File, fileSize int64, rangeHeader string) error {
	start, end, ok := parseRange(rangeHeader, fileSize)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	contentLength := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if _, err := io.CopyN(w, file, contentLength); err != nil {
		return fmt.Errorf("error streaming range: %w", err)
	}
	return nil
}

// parseRange reads "bytes=start-end", "bytes=start-" or "bytes=-suffix"
func parseRange(header string, fileSize int64) (start, end int64, ok bool) {
	byteRange, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(byteRange, ",") {
		return 0, 0, false
	}
	first, last, found := strings.Cut(byteRange, "-")
	if !found {
		return 0, 0, false
	}

	if first == "" {
		suffix, err := strconv.ParseInt(last, 10, 64)
		if err != nil || suffix <= 0 {
			return 0, 0, false
		}
		if suffix > fileSize {
			suffix = fileSize
		}
		return fileSize - suffix, fileSize - 1, fileSize > 0
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end = fileSize - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		if end >= fileSize {
			end = fileSize - 1
		}
	}
	if start < 0 || start > end || start >= fileSize {
		return 0, 0, false
	}
	return start, end, true
}
