package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatPCM = 1
	bitDepth  = 16
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Info describes a WAV container. Frames counts samples per channel.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     int
	Frames     int64
}

func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(i.Frames) * time.Second / time.Duration(i.SampleRate)
}

// Matches reports whether the file is plain 16-bit PCM at the given rate
// and channel count, i.e. usable by the engine without decoding.
func (i Info) Matches(sampleRate, channels int) bool {
	return i.Format == formatPCM && i.BitDepth == bitDepth && i.SampleRate == sampleRate && i.Channels == channels
}

// WritePCM16 stores interleaved little-endian signed 16-bit samples as a WAV
// at path. The file is written beside the destination and renamed into
// place, so path never holds a partial container.
func WritePCM16(path string, pcm []byte, sampleRate, channels int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload has odd length %d", len(pcm))
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid wav layout: %d Hz, %d channels", sampleRate, channels)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}

	tempPath := path + ".part"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	success := false
	defer func() {
		_ = out.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	enc := wav.NewEncoder(out, sampleRate, bitDepth, channels, formatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync wav: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("move wav into place: %w", err)
	}

	success = true
	return nil
}

// Inspect reads the header and data chunk size of a WAV file without loading
// the samples.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, ErrInvalidWAV
	}

	if err := dec.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	info := Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Format:     int(dec.WavAudioFormat),
	}
	if info.Channels <= 0 || info.BitDepth <= 0 || info.BitDepth%8 != 0 {
		return Info{}, ErrUnsupportedWAV
	}

	frameSize := int64(info.Channels * info.BitDepth / 8)
	info.Frames = dec.PCMLen() / frameSize
	return info, nil
}
