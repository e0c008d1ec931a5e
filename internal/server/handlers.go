package server

import (
	"bytes"
	"net/http"
	"net/url"

	"discotheque/internal/library"
)

// handleIndex renders a directory listing; a file path is served as a download
func (ms *MusicServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	rel := library.Normalize(r.PathValue("path"))

	path, info, err := ms.browser.Resolve(rel)
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	if !info.IsDir() {
		ms.serveFile(w, r, path, true)
		return
	}

	listing, err := ms.browser.List(rel)
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}

	data := pageData{
		Listing:    listing,
		SocketPath: "/ws/player?path=" + url.QueryEscape(rel),
	}

	var buf bytes.Buffer
	if err := ms.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error rendering page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleGetListing returns a directory listing as JSON
func (ms *MusicServer) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := ms.browser.List(r.PathValue("path"))
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	ms.respondJSON(w, listing)
}
