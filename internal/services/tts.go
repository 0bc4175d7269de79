package services

import (
	"context"
	"iter"

	"github.com/bobarin/placeguide/internal/models"
)

// ---------------------------------------------------------------------------
// SpeechSynthesizer: common interface for text-to-speech providers
// Edge and ElevenLabs both implement it so the pipeline can use whichever is
// configured without knowing the underlying provider.
// ---------------------------------------------------------------------------

// SpeechSynthesizer turns a script into an ordered stream of MP3 chunks.
type SpeechSynthesizer interface {
	// Synthesize returns a finite, single-use stream. Chunks are yielded in
	// emission order; a non-nil error ends the stream. Only audio payload is
	// yielded, control and metadata frames are dropped by the provider.
	Synthesize(ctx context.Context, text string, profile models.AcousticProfile) iter.Seq2[models.AudioChunk, error]
}

// TextGenerator turns a composed prompt into a guide script. Calls block until
// the complete text is available.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
