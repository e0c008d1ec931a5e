package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// DefaultSampleRate is the rate the speaker is opened with; tracks at other
// rates are resampled.
const DefaultSampleRate beep.SampleRate = 44100

// Sink is where decoded audio goes
type Sink interface {
	Init(rate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// speakerSink is the sound card, opened on first use
type speakerSink struct {
	once sync.Once
	err  error
}

func (s *speakerSink) Init(rate beep.SampleRate) error {
	s.once.Do(func() {
		s.err = speaker.Init(rate, rate.N(time.Second/10))
	})
	return s.err
}

func (s *speakerSink) Play(st beep.Streamer) { speaker.Play(st) }
func (s *speakerSink) Clear()                { speaker.Clear() }
func (s *speakerSink) Lock()                 { speaker.Lock() }
func (s *speakerSink) Unlock()               { speaker.Unlock() }

// Resolver maps a track source to a local file
type Resolver func(src string) (string, error)

// Output is a playback handle backed by beep. The loop flag is honoured by
// restarting the track when it ends; otherwise the end hook runs.
type Output struct {
	mu      sync.Mutex
	sink    Sink
	resolve Resolver
	rate    beep.SampleRate
	logger  *logrus.Logger
	onEnd   func()

	src    string
	loop   bool
	volume float64

	gen      uint64
	streamer beep.StreamSeekCloser
	format   beep.Format
	gain     *effects.Volume
}

// OutputOption configures an Output
type OutputOption func(*Output)

// WithSink replaces the sound card
func WithSink(sink Sink) OutputOption {
	return func(o *Output) { o.sink = sink }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) OutputOption {
	return func(o *Output) { o.logger = logger }
}

// NewOutput creates an output resolving sources with resolve
func NewOutput(resolve Resolver, opts ...OutputOption) *Output {
	o := &Output{
		sink:    &speakerSink{},
		resolve: resolve,
		rate:    DefaultSampleRate,
		volume:  1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
		o.logger.SetOutput(io.Discard)
	}
	return o
}

// OnEnd sets the function called when a non-looping track finishes. It runs
// on its own goroutine.
func (o *Output) OnEnd(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onEnd = fn
}

// SetSource selects the track played by the next Play
func (o *Output) SetSource(src string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.src = src
}

// SetLoop sets the loop flag
func (o *Output) SetLoop(loop bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loop = loop
}

// Loop returns the loop flag
func (o *Output) Loop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loop
}

// SetVolume sets the linear volume in [0, 1]
func (o *Output) SetVolume(volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = volume
	if o.gain != nil {
		o.sink.Lock()
		applyGain(o.gain, volume)
		o.sink.Unlock()
	}
}

// Volume returns the linear volume
func (o *Output) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// applyGain converts a linear volume into beep's exponential scale
func applyGain(gain *effects.Volume, volume float64) {
	if volume <= 0 {
		gain.Silent = true
		gain.Volume = 0
		return
	}
	gain.Silent = false
	gain.Volume = math.Log2(volume)
}

// Play decodes the current source and starts it. Cancelling ctx stops it.
func (o *Output) Play(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	o.stopLocked()

	path, err := o.resolve(o.src)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", o.src, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	streamer, format, err := Decode(f, path)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if err := o.sink.Init(o.rate); err != nil {
		streamer.Close()
		return fmt.Errorf("open audio device: %w", err)
	}

	o.streamer = streamer
	o.format = format
	gen := o.gen
	o.startLocked(gen)

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.gen == gen {
			o.stopLocked()
		}
	}()

	o.logger.WithFields(logrus.Fields{
		"src":        o.src,
		"sampleRate": format.SampleRate,
	}).Debug("Playing")
	return nil
}

func (o *Output) startLocked(gen uint64) {
	var s beep.Streamer = o.streamer
	if o.format.SampleRate != o.rate {
		s = beep.Resample(4, o.format.SampleRate, o.rate, o.streamer)
	}
	o.gain = &effects.Volume{Streamer: s, Base: 2}
	applyGain(o.gain, o.volume)
	o.sink.Play(beep.Seq(o.gain, beep.Callback(func() {
		// called with the sink locked
		go o.finished(gen)
	})))
}

func (o *Output) finished(gen uint64) {
	o.mu.Lock()
	if gen != o.gen || o.streamer == nil {
		o.mu.Unlock()
		return
	}
	if o.loop {
		err := o.streamer.Seek(0)
		if err == nil {
			o.startLocked(gen)
			o.mu.Unlock()
			return
		}
		o.logger.WithError(err).Warn("Cannot rewind track for loop")
	}
	onEnd := o.onEnd
	o.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

// stopLocked silences the current track and invalidates its callbacks
func (o *Output) stopLocked() {
	o.gen++
	if o.streamer == nil {
		return
	}
	o.sink.Clear()
	o.streamer.Close()
	o.streamer = nil
	o.gain = nil
}

// Stop stops playback
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}
