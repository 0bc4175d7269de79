// Package audio assembles synthesized MP3 frames into the inline data URI
// returned to clients.
package audio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/bobarin/placeguide/internal/models"
)

// DataURIPrefix is prepended to the base64 payload.
const DataURIPrefix = "data:audio/mp3;base64,"

// Concat joins chunks in the order given.
func Concat(chunks []models.AudioChunk) []byte {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	out := make([]byte, 0, size)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// DataURI encodes an MP3 buffer as a self-contained data URI.
func DataURI(data []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(data)
}

// Duration decodes the MP3 stream headers to compute playback length. The
// decoder emits 16-bit stereo PCM, so one sample frame is 4 bytes.
func Duration(data []byte) (time.Duration, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty audio")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode mp3: %w", err)
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", rate)
	}

	samples := dec.Length() / 4
	return time.Duration(samples) * time.Second / time.Duration(rate), nil
}
