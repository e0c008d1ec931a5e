package player

import "discotheque/pkg/models"

// Playlist is the ordered, immutable list of tracks of one page.
type Playlist struct {
	tracks []models.Track
}

// NewPlaylist copies tracks into a new playlist
func NewPlaylist(tracks []models.Track) Playlist {
	t := make([]models.Track, len(tracks))
	copy(t, tracks)
	return Playlist{tracks: t}
}

// PlaylistFromEntries builds a playlist from the playable rows of a listing,
// in listing order.
func PlaylistFromEntries(entries []models.FileEntry) Playlist {
	tracks := make([]models.Track, 0, len(entries))
	for _, entry := range entries {
		if entry.Playable {
			tracks = append(tracks, entry.Track())
		}
	}
	return Playlist{tracks: tracks}
}

// Len returns the number of tracks
func (p Playlist) Len() int {
	return len(p.tracks)
}

// At returns the track at index i
func (p Playlist) At(i int) (models.Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return models.Track{}, false
	}
	return p.tracks[i], true
}

// IndexOf returns the position of the first track with the given source, or -1.
func (p Playlist) IndexOf(src string) int {
	for i, t := range p.tracks {
		if t.Src == src {
			return i
		}
	}
	return -1
}

// Tracks returns a copy of the tracks
func (p Playlist) Tracks() []models.Track {
	t := make([]models.Track, len(p.tracks))
	copy(t, p.tracks)
	return t
}
