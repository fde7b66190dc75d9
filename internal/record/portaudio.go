//go:build portaudio

package record

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const portaudioFramesPerBuffer = 1024

func init() {
	inProcessBackends = append(inProcessBackends, newPortAudioBackend)
}

// portaudioBackend captures in-process through libportaudio, so no helper
// binary is required.
type portaudioBackend struct{}

func newPortAudioBackend() Backend {
	return &portaudioBackend{}
}

func (b *portaudioBackend) Name() string {
	return "portaudio"
}

func (b *portaudioBackend) Available() bool {
	if err := portaudio.Initialize(); err != nil {
		return false
	}
	defer portaudio.Terminate()

	_, err := portaudio.DefaultInputDevice()
	return err == nil
}

func (b *portaudioBackend) Open(_ context.Context, cfg Config) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	channels := defaultChannels(cfg.Channels)
	in := make([]int16, portaudioFramesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(defaultSampleRate(cfg.SampleRate)), portaudioFramesPerBuffer, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start portaudio stream: %w", err)
	}

	return &portaudioSource{stream: stream, in: in}, nil
}

func (b *portaudioBackend) ListDevices(_ context.Context) (string, error) {
	if err := portaudio.Initialize(); err != nil {
		return "", fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return "", fmt.Errorf("list portaudio devices: %w", err)
	}

	var lines []string
	for i, device := range devices {
		if device.MaxInputChannels <= 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d: %s (%d ch, %.0f Hz)", i, device.Name, device.MaxInputChannels, device.DefaultSampleRate))
	}
	if len(lines) == 0 {
		return "", errNoListing
	}
	return strings.Join(lines, "\n"), nil
}

type portaudioSource struct {
	stream  *portaudio.Stream
	in      []int16
	pending []byte

	closeOnce sync.Once
	closeErr  error
}

func (s *portaudioSource) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if err := s.stream.Read(); err != nil {
			return 0, fmt.Errorf("read portaudio stream: %w", err)
		}
		buf := make([]byte, len(s.in)*2)
		for i, sample := range s.in {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
		}
		s.pending = buf
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portaudioSource) Close() error {
	s.closeOnce.Do(func() {
		stopErr := s.stream.Stop()
		closeErr := s.stream.Close()
		termErr := portaudio.Terminate()
		switch {
		case stopErr != nil:
			s.closeErr = stopErr
		case closeErr != nil:
			s.closeErr = closeErr
		default:
			s.closeErr = termErr
		}
	})
	return s.closeErr
}
