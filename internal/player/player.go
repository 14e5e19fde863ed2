package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/keshon/voice-relay/internal/audio"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyPlaying = errors.New("an utterance is already playing")
	ErrNoTrackPlaying = errors.New("nothing is currently playing")
)

// Sink receives 20ms PCM frames (48 kHz stereo, interleaved).
type Sink interface {
	Speaking(on bool) error
	WriteFrame(pcm []int16) error
}

// Player plays one PCM stream at a time into a Sink.
type Player struct {
	mu      sync.Mutex
	playing bool
	sink    Sink
	log     zerolog.Logger

	stopOnce     sync.Once
	stopPlayback chan struct{}
	playbackDone chan struct{}
}

// New creates a new Player bound to sink
func New(sink Sink, log zerolog.Logger) *Player {
	return &Player{
		sink: sink,
		log:  log,
	}
}

// Play starts streaming pcm in the background. onDone runs exactly once when
// the stream ends, fails or is stopped; err is nil for a clean end or a stop.
func (p *Player) Play(pcm io.ReadCloser, onDone func(err error)) error {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	p.playing = true
	p.stopOnce = sync.Once{}
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stopPlayback = stop
	p.playbackDone = done
	p.mu.Unlock()

	p.log.Debug().Msg("Playback started")
	go p.runPlayback(pcm, stop, done, onDone)
	return nil
}

// Stop interrupts playback and waits for the playback goroutine to exit.
func (p *Player) Stop() error {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return ErrNoTrackPlaying
	}
	stop, done := p.stopPlayback, p.playbackDone
	p.stopOnce.Do(func() { close(stop) })
	p.mu.Unlock()

	<-done
	return nil
}

// IsPlaying returns current playback state
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) runPlayback(pcm io.ReadCloser, stop <-chan struct{}, done chan<- struct{}, onDone func(error)) {
	err := p.stream(pcm, stop)
	pcm.Close()

	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	close(done)

	if err != nil {
		p.log.Warn().Err(err).Msg("Playback finished with error")
	} else {
		p.log.Debug().Msg("Playback finished")
	}

	if onDone != nil {
		onDone(err)
	}
}

func (p *Player) stream(pcm io.Reader, stop <-chan struct{}) error {
	if err := p.sink.Speaking(true); err != nil {
		return fmt.Errorf("speaking on: %w", err)
	}
	defer func() {
		if err := p.sink.Speaking(false); err != nil {
			p.log.Debug().Err(err).Msg("Failed to clear speaking flag")
		}
	}()

	buf := make([]byte, audio.FrameBytes)
	frame := make([]int16, audio.FrameSize*audio.Channels)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := io.ReadFull(pcm, buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		last := errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !last {
			return fmt.Errorf("read error: %w", err)
		}
		if last {
			clear(buf[n:])
		}

		for i := range frame {
			frame[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
		}
		if err := p.sink.WriteFrame(frame); err != nil {
			return fmt.Errorf("send error: %w", err)
		}
		if last {
			return nil
		}
	}
}
