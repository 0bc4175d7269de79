package services

import (
	"context"
	"fmt"
	"iter"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/bobarin/placeguide/internal/logger"
	"github.com/bobarin/placeguide/internal/models"
)

// ---------------------------------------------------------------------------
// Edge Text-to-Speech Service
// Streams MP3 frames from the Microsoft Edge read-aloud endpoint. Voice, rate
// and pitch come straight from the resolved acoustic profile.
// ---------------------------------------------------------------------------

// edgeStream is one open read-aloud session. The client splits long text into
// segments, each read on its own connection, so frames of different segments
// interleave and every segment finishes with its own "end" frame.
type edgeStream struct {
	frames   <-chan map[string]interface{}
	segments int
	close    func()
}

// EdgeService holds no session state; each Synthesize call opens its own.
type EdgeService struct {
	open func(text string, profile models.AcousticProfile) (edgeStream, error)
}

var _ SpeechSynthesizer = (*EdgeService)(nil)

func NewEdgeService() *EdgeService {
	return &EdgeService{open: openEdgeStream}
}

func openEdgeStream(text string, profile models.AcousticProfile) (edgeStream, error) {
	comm, err := edge.NewCommunicate(text,
		edge.WithVoice(profile.VoiceID),
		edge.WithRate(profile.Rate()),
		edge.WithPitch(profile.Pitch()),
	)
	if err != nil {
		return edgeStream{}, fmt.Errorf("edge-tts session for voice %s: %w", profile.VoiceID, err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return edgeStream{}, fmt.Errorf("edge-tts stream: %w", err)
	}
	return edgeStream{frames: ch, segments: comm.AudioDataIndex, close: comm.CloseOutput}, nil
}

// Synthesize collects the audio of every segment and yields it in segment
// order once all segments have ended. Any "error" frame fails the stream.
func (s *EdgeService) Synthesize(ctx context.Context, text string, profile models.AcousticProfile) iter.Seq2[models.AudioChunk, error] {
	return func(yield func(models.AudioChunk, error) bool) {
		stream, err := s.open(text, profile)
		if err != nil {
			yield(nil, err)
			return
		}
		// Closing releases segment readers still blocked on a send; the
		// client recovers the resulting panic inside each reader.
		if stream.close != nil {
			defer stream.close()
		}

		logger.Debugf("[EdgeTTS] Streaming (voice=%s, rate=%s, pitch=%s, textLen=%d, segments=%d)",
			profile.VoiceID, profile.Rate(), profile.Pitch(), len([]rune(text)), stream.segments)

		segments, err := collectEdgeSegments(ctx, stream)
		if err != nil {
			yield(nil, err)
			return
		}

		total := 0
		for i, seg := range segments {
			if len(seg) == 0 {
				yield(nil, fmt.Errorf("edge-tts returned no audio for segment %d (voice %s)", i, profile.VoiceID))
				return
			}
			total += len(seg)
		}
		logger.Debugf("[EdgeTTS] Stream finished (%d segments, %d bytes)", len(segments), total)

		for _, seg := range segments {
			if !yield(models.AudioChunk(seg), nil) {
				return
			}
		}
	}
}

// collectEdgeSegments reads frames until one "end" frame per segment has
// arrived and returns the audio of each segment indexed by segment number.
func collectEdgeSegments(ctx context.Context, stream edgeStream) ([][]byte, error) {
	if stream.segments <= 0 {
		return nil, fmt.Errorf("edge-tts: nothing to synthesize")
	}

	segments := make([][]byte, stream.segments)
	ended := 0
	for ended < stream.segments {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-stream.frames:
			if !ok {
				return nil, fmt.Errorf("edge-tts stream closed after %d of %d segments", ended, stream.segments)
			}
			if e, ok := msg["error"]; ok {
				return nil, fmt.Errorf("edge-tts: %+v", e)
			}
			if _, ok := msg["end"]; ok {
				ended++
				continue
			}
			if msgType, _ := msg["type"].(string); msgType != "audio" {
				continue
			}
			ad, ok := msg["data"].(edge.AudioData)
			if !ok {
				return nil, fmt.Errorf("edge-tts: unexpected audio payload %T", msg["data"])
			}
			if ad.Index < 0 || ad.Index >= len(segments) {
				return nil, fmt.Errorf("edge-tts: audio for segment %d of %d", ad.Index, len(segments))
			}
			segments[ad.Index] = append(segments[ad.Index], ad.Data...)
		}
	}
	return segments, nil
}
