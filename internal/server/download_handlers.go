package server

import (
	"mime"
	"net/http"
	"path/filepath"

	"discotheque/internal/library"
)

// handleDownloadFile sends a library file as an attachment
func (ms *MusicServer) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	path, info, err := ms.browser.Resolve(r.PathValue("path"))
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	if info.IsDir() {
		ms.respondWithError(w, r, http.StatusNotFound, "Not a file", nil)
		return
	}
	ms.serveFile(w, r, path, true)
}

// handleDownloadZip streams a directory as a zip archive
func (ms *MusicServer) handleDownloadZip(w http.ResponseWriter, r *http.Request) {
	path, info, err := ms.browser.Resolve(r.PathValue("path"))
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	if !info.IsDir() {
		ms.respondWithError(w, r, http.StatusNotFound, "Not a directory", nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filepath.Base(path) + ".zip",
	}))

	// headers are gone once streaming starts, so failures can only be logged
	if err := library.WriteZip(w, path); err != nil {
		ms.logger.WithError(err).WithField("directory", path).Error("Zip download failed")
		return
	}
	ms.logger.WithField("directory", path).Debug("Zip download complete")
}
