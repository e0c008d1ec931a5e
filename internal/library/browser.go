// Package library exposes a directory tree of audio files as listings.
package library

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"discotheque/internal/cache"
	"discotheque/internal/metadata"
	"discotheque/internal/player"
	"discotheque/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrOutsideRoot is returned for paths that resolve outside the library root
	ErrOutsideRoot = errors.New("path outside library root")
	// ErrNotFound is returned for paths that do not exist
	ErrNotFound = errors.New("path not found")
)

// Browser lists and resolves paths below a library root
type Browser struct {
	root        string
	extractor   *metadata.Extractor
	backgrounds map[string]string
	cache       *cache.LibraryCache
	logger      *logrus.Logger
}

// Option configures a Browser
type Option func(*Browser)

// WithCache caches listings in lc
func WithCache(lc *cache.LibraryCache) Option {
	return func(b *Browser) { b.cache = lc }
}

// WithBackgrounds maps path fragments to background image names
func WithBackgrounds(backgrounds map[string]string) Option {
	return func(b *Browser) { b.backgrounds = backgrounds }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(b *Browser) { b.logger = logger }
}

// NewBrowser creates a browser rooted at root, which must be a directory
func NewBrowser(root string, extractor *metadata.Extractor, opts ...Option) (*Browser, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", abs)
	}

	b := &Browser{
		root:      abs,
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logrus.New()
		b.logger.SetOutput(io.Discard)
	}
	return b, nil
}

// Root returns the absolute library root
func (b *Browser) Root() string {
	return b.root
}

// Normalize turns a request path into a slash separated path relative to
// the root, "" being the root itself. Parent references are kept so that
// Resolve can reject them.
func Normalize(rel string) string {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return ""
	}
	rel = path.Clean(rel)
	if rel == "." {
		return ""
	}
	return rel
}

// Resolve maps rel to an absolute path inside the root
func (b *Browser) Resolve(rel string) (string, os.FileInfo, error) {
	rel = Normalize(rel)
	target := filepath.Join(b.root, filepath.FromSlash(rel))
	if !b.contains(target) {
		return "", nil, ErrOutsideRoot
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}

	// symlinks must not lead out of the tree either
	real, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", nil, err
	}
	if !b.contains(real) {
		return "", nil, ErrOutsideRoot
	}
	return target, info, nil
}

// RelPath converts an absolute path back into a root relative one
func (b *Browser) RelPath(abs string) (string, bool) {
	if !b.contains(abs) {
		return "", false
	}
	rel, err := filepath.Rel(b.root, abs)
	if err != nil {
		return "", false
	}
	return Normalize(filepath.ToSlash(rel)), true
}

func (b *Browser) contains(p string) bool {
	rel, err := filepath.Rel(b.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// List returns the listing of the directory rel
func (b *Browser) List(rel string) (*models.Listing, error) {
	rel = Normalize(rel)
	if b.cache != nil {
		if listing, ok := b.cache.GetListing(rel); ok {
			return listing, nil
		}
	}

	dir, info, err := b.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", rel, err)
	}

	listing := &models.Listing{
		RelPath:    rel,
		Background: b.Background(rel),
		Dirs:       []models.DirEntry{},
		Files:      []models.FileEntry{},
	}
	if rel != "" {
		listing.ParentLink = Link("/", path.Dir(rel))
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		childRel := path.Join(rel, entry.Name())

		// follow symlinks like a plain stat would
		fi, err := os.Stat(full)
		if err != nil {
			b.logger.WithError(err).WithField("path", childRel).Debug("Skipping unreadable entry")
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			if real, err := filepath.EvalSymlinks(full); err != nil || !b.contains(real) {
				continue
			}
		}

		if fi.IsDir() {
			listing.Dirs = append(listing.Dirs, models.DirEntry{
				Name:    entry.Name(),
				Link:    Link("/", childRel),
				ZipLink: Link("/download/zip/", childRel),
				Count:   countChildren(full),
			})
			continue
		}

		listing.Files = append(listing.Files, b.fileEntry(full, childRel, fi))
	}

	sort.SliceStable(listing.Dirs, func(i, j int) bool {
		return strings.ToLower(listing.Dirs[i].Name) < strings.ToLower(listing.Dirs[j].Name)
	})
	sort.SliceStable(listing.Files, func(i, j int) bool {
		return strings.ToLower(listing.Files[i].Name) < strings.ToLower(listing.Files[j].Name)
	})

	if b.cache != nil {
		b.cache.SetListing(rel, listing)
	}
	return listing, nil
}

func (b *Browser) fileEntry(full, rel string, fi os.FileInfo) models.FileEntry {
	name := fi.Name()
	entry := models.FileEntry{
		Name:         name,
		DisplayName:  strings.TrimSuffix(name, filepath.Ext(name)),
		RelPath:      rel,
		Link:         Link("/", rel),
		DownloadLink: Link("/download/file/", rel),
		StreamLink:   Link("/stream/", rel),
		CoverLink:    Link("/cover/", rel),
		Size:         HumanSize(fi.Size()),
		SizeBytes:    fi.Size(),
	}
	if b.extractor != nil && b.extractor.IsPlayable(name) {
		entry.Playable = true
		info := b.extractor.Read(full)
		entry.Album = info.Album
		entry.Duration = info.Duration
	}
	return entry
}

// Playlist returns the playable files of directory rel in listing order
func (b *Browser) Playlist(rel string) (player.Playlist, error) {
	listing, err := b.List(rel)
	if err != nil {
		return player.Playlist{}, err
	}
	return player.PlaylistFromEntries(listing.Files), nil
}

// Background picks the background whose key is the longest fragment of rel
func (b *Browser) Background(rel string) string {
	longest := ""
	name := ""
	for key, image := range b.backgrounds {
		if strings.Contains(rel, key) && len(key) > len(longest) {
			longest = key
			name = image
		}
	}
	if name == "" {
		return ""
	}
	return Link("/background/", name)
}

func countChildren(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

// Link joins an URL prefix with an escaped relative path
func Link(prefix, rel string) string {
	rel = Normalize(rel)
	u := url.URL{Path: prefix + rel}
	return u.EscapedPath()
}

// HumanSize formats a byte count with one decimal, "1.5MB"
func HumanSize(n int64) string {
	size := float64(n)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	for i, unit := range units {
		if size < 1024 || i == len(units)-1 {
			return fmt.Sprintf("%.1f%s", size, unit)
		}
		size /= 1024
	}
	return ""
}
