package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/bobarin/placeguide/internal/logger"
	"github.com/bobarin/placeguide/internal/models"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses the ElevenLabs streaming REST endpoint. The response body is read in
// fixed-size chunks and yielded as they arrive.
// Model: eleven_flash_v2_5 (Flash v2.5, 32 languages)
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_flash_v2_5"
	elevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB"
	elevenLabsOutputFormat = "mp3_44100_128"
	elevenLabsReadSize     = 16 * 1024

	// Accepted speed range of the API.
	elevenLabsMinSpeed = 0.7
	elevenLabsMaxSpeed = 1.2
)

// ElevenLabsService handles text-to-speech via ElevenLabs. Profile voice IDs
// name Edge voices, so every request uses the configured ElevenLabs voice and
// only the rate offset carries over (as speed). Pitch has no equivalent.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	client  *http.Client
}

// Ensure ElevenLabsService implements SpeechSynthesizer at compile time.
var _ SpeechSynthesizer = (*ElevenLabsService)(nil)

// NewElevenLabsService creates an ElevenLabs service. An empty voiceID uses
// the default narrator voice.
func NewElevenLabsService(apiKey, voiceID string) *ElevenLabsService {
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: elevenLabsDefaultModel,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// WithBaseURL points the service at another host.
func (s *ElevenLabsService) WithBaseURL(baseURL string) *ElevenLabsService {
	s.baseURL = baseURL
	return s
}

// ---------------------------------------------------------------------------
// Request types
// ---------------------------------------------------------------------------

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

// elevenLabsSpeed converts a signed rate percentage into the API's speed
// multiplier, clamped to the accepted range.
func elevenLabsSpeed(ratePercent int) float64 {
	speed := 1 + float64(ratePercent)/100
	if speed < elevenLabsMinSpeed {
		return elevenLabsMinSpeed
	}
	if speed > elevenLabsMaxSpeed {
		return elevenLabsMaxSpeed
	}
	return speed
}

// Synthesize streams the MP3 response body.
func (s *ElevenLabsService) Synthesize(ctx context.Context, text string, profile models.AcousticProfile) iter.Seq2[models.AudioChunk, error] {
	return func(yield func(models.AudioChunk, error) bool) {
		speed := elevenLabsSpeed(profile.RatePercent)
		reqBody := elevenLabsRequest{
			Text:    text,
			ModelID: s.modelID,
			VoiceSettings: &elevenLabsVoiceSettings{
				Stability:       0.60,
				SimilarityBoost: 0.80,
				Speed:           speed,
			},
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			yield(nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err))
			return
		}

		// POST /v1/text-to-speech/{voice_id}/stream?output_format=mp3_44100_128
		url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=%s",
			s.baseURL, s.voiceID, elevenLabsOutputFormat)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			yield(nil, fmt.Errorf("failed to create ElevenLabs request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("xi-api-key", s.apiKey)

		logger.Debugf("[ElevenLabs] Streaming speech (voiceID=%s, model=%s, textLen=%d, speed=%.2f)",
			s.voiceID, s.modelID, len([]rune(text)), speed)

		resp, err := s.client.Do(req)
		if err != nil {
			yield(nil, fmt.Errorf("ElevenLabs request failed: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield(nil, fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, string(body)))
			return
		}

		total := 0
		buf := make([]byte, elevenLabsReadSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				chunk := make(models.AudioChunk, n)
				copy(chunk, buf[:n])
				total += n
				if !yield(chunk, nil) {
					return
				}
			}
			if errors.Is(readErr, io.EOF) {
				break
			}
			if readErr != nil {
				yield(nil, fmt.Errorf("failed to read ElevenLabs audio stream: %w", readErr))
				return
			}
		}

		if total == 0 {
			yield(nil, fmt.Errorf("ElevenLabs returned empty audio"))
			return
		}
		logger.Debugf("[ElevenLabs] Speech streamed (%d bytes)", total)
	}
}
