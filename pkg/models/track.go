package models

import "time"

// Track is one playable entry of a playlist. Src and Cover are URIs, Name is
// the display title without the file extension.
type Track struct {
	Src   string `json:"src"`
	Cover string `json:"cover"`
	Name  string `json:"name"`
	Album string `json:"album,omitempty"`
}

// DirEntry represents a sub-directory in a listing
type DirEntry struct {
	Name    string `json:"name"`
	Link    string `json:"link"`
	ZipLink string `json:"zipLink"`
	Count   int    `json:"count"`
}

// FileEntry represents a file in a listing
type FileEntry struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"` // name without extension
	RelPath      string `json:"relPath"`
	Link         string `json:"link"`
	DownloadLink string `json:"downloadLink"`
	StreamLink   string `json:"streamLink"`
	CoverLink    string `json:"coverLink"`
	Size         string `json:"size"`
	SizeBytes    int64  `json:"sizeBytes"`
	Playable     bool   `json:"playable"`
	Album        string `json:"album,omitempty"`
	Duration     int    `json:"duration"` // in seconds
}

// Track converts a playable file row into a Track.
func (f FileEntry) Track() Track {
	return Track{
		Src:   f.StreamLink,
		Cover: f.CoverLink,
		Name:  f.DisplayName,
		Album: f.Album,
	}
}

// Listing is the content of one directory page
type Listing struct {
	RelPath    string      `json:"relPath"`
	ParentLink string      `json:"parentLink,omitempty"`
	Background string      `json:"background,omitempty"`
	Dirs       []DirEntry  `json:"dirs"`
	Files      []FileEntry `json:"files"`
}

// HistoryEntry is one track start recorded for a profile
type HistoryEntry struct {
	ID       int       `json:"id"`
	Profile  string    `json:"-"`
	Src      string    `json:"src"`
	Name     string    `json:"name"`
	Album    string    `json:"album,omitempty"`
	PlayedAt time.Time `json:"playedAt"`
}
