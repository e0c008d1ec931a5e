package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"

	"discotheque/internal/library"
)

// handleCover serves the embedded picture of a file as JPEG, or a gray square
func (ms *MusicServer) handleCover(w http.ResponseWriter, r *http.Request) {
	rel := library.Normalize(r.PathValue("path"))
	path, info, err := ms.browser.Resolve(rel)
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	if info.IsDir() {
		ms.respondWithError(w, r, http.StatusNotFound, "Not a file", nil)
		return
	}

	data, ok := ms.cache.GetCover(rel)
	if !ok {
		data, err = ms.renderCover(path)
		if err != nil {
			ms.respondWithError(w, r, http.StatusInternalServerError, "Error rendering cover", err)
			return
		}
		ms.cache.SetCover(rel, data)
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// renderCover re-encodes the embedded picture, falling back to a placeholder
func (ms *MusicServer) renderCover(path string) ([]byte, error) {
	if pic, ok := ms.extractor.Picture(path); ok {
		img, _, err := image.Decode(bytes.NewReader(pic.Data))
		if err == nil {
			return encodeJPEG(img)
		}
		ms.logger.WithError(err).WithField("file_path", path).Debug("Undecodable embedded picture")
	}
	return placeholderCover(ms.config.Library.CoverSize)
}

func placeholderCover(size int) ([]byte, error) {
	if size <= 0 {
		size = 200
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: gray}, image.Point{}, draw.Src)
	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// handleBackground serves one of the configured background images
func (ms *MusicServer) handleBackground(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	known := false
	for _, file := range ms.config.Library.Backgrounds {
		if file == name {
			known = true
			break
		}
	}
	if !known || filepath.Base(name) != name {
		ms.respondWithError(w, r, http.StatusNotFound, "Background not found", nil)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, filepath.Join(ms.config.Library.BackgroundDir, name))
}
