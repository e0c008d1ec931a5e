package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Info is what a listing shows about an audio file
type Info struct {
	Album      string
	Duration   int // in seconds
	HasPicture bool
}

// Picture is an embedded cover image
type Picture struct {
	Data     []byte
	MIMEType string
}

// Extractor reads tags and durations from audio files
type Extractor struct {
	playableFormats []string
	logger          *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(playableFormats []string, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Extractor{
		playableFormats: playableFormats,
		logger:          logger,
	}
}

// Read extracts the listing information of a file. Missing or unreadable
// tags yield an empty album; an undecodable stream yields a zero duration.
func (e *Extractor) Read(filePath string) Info {
	var info Info

	if m, err := readTags(filePath); err == nil {
		info.Album = m.Album()
		info.HasPicture = m.Picture() != nil
	} else {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Debug("No readable tags")
	}

	duration, err := e.Duration(filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Debug("Failed to calculate duration, setting to 0")
	}
	info.Duration = duration

	return info
}

// Album returns the album tag of a file, or "" when unavailable
func (e *Extractor) Album(filePath string) string {
	m, err := readTags(filePath)
	if err != nil {
		return ""
	}
	return m.Album()
}

// Picture returns the embedded cover of a file
func (e *Extractor) Picture(filePath string) (Picture, bool) {
	m, err := readTags(filePath)
	if err != nil {
		return Picture{}, false
	}
	p := m.Picture()
	if p == nil || len(p.Data) == 0 {
		return Picture{}, false
	}
	mime := p.MIMEType
	if mime == "" {
		mime = GetImageMimeType(p.Data)
	}
	return Picture{Data: p.Data, MIMEType: mime}, true
}

func readTags(filePath string) (tag.Metadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return tag.ReadFrom(file)
}

// Duration calculates the duration of an audio file in seconds
func (e *Extractor) Duration(filePath string) (int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return durationFLAC(filePath)
	case ".wav":
		return durationWAV(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// durationMP3 sums frame durations; when no frame decodes it estimates from
// the file size at 192 kbps.
func (e *Extractor) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return estimateFromFileSize(f, 192000)
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// durationFLAC reads the STREAMINFO block
func durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return int(secs + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// durationWAV uses the header and the PCM payload size
func durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pcmBytes := st.Size() - 44
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	secs := float64(pcmBytes/frameSize) / float64(dec.SampleRate)
	return int(secs + 0.5), nil
}

func estimateFromFileSize(f *os.File, bitrate int) (int, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}

// GetImageMimeType guesses the MIME type of image data from its magic bytes
func GetImageMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}
	return "application/octet-stream"
}

// IsPlayable checks if a file has a playable extension
func (e *Extractor) IsPlayable(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.playableFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// GetContentType returns the MIME type used to stream a file
func GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
