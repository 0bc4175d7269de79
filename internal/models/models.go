package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enums
type Mode string

const (
	ModeSimple Mode = "simple"
	ModeDetail Mode = "detail"
)

// LanguageJapanese is the only language with dedicated templates and voices;
// every other code shares the non-Japanese branch.
const LanguageJapanese = "ja"

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Defaults applied to missing request fields.
const (
	DefaultPlaceName = "This place"
	DefaultLanguage  = LanguageJapanese
	DefaultMode      = ModeDetail
)

// Models

// GuideRequest is the normalized, request-scoped input to the pipeline.
type GuideRequest struct {
	SourceText    string `json:"source_text"`
	PlaceName     string `json:"place_name"`
	Language      string `json:"language"`
	Mode          Mode   `json:"mode"`
	VoiceSelector string `json:"voice_selector"`
}

// IsJapanese reports whether the request takes the Japanese branch.
func (r GuideRequest) IsJapanese() bool {
	return r.Language == LanguageJapanese
}

// AcousticProfile drives speech synthesis for one request.
type AcousticProfile struct {
	VoiceID     string `json:"voice_id"`
	PitchHz     int    `json:"pitch_hz"`
	RatePercent int    `json:"rate_percent"`
}

// Pitch renders the offset in the signed "+5Hz" form synthesis engines expect.
func (p AcousticProfile) Pitch() string {
	return fmt.Sprintf("%+dHz", p.PitchHz)
}

// Rate renders the offset in the signed "+10%" form.
func (p AcousticProfile) Rate() string {
	return fmt.Sprintf("%+d%%", p.RatePercent)
}

// PersonaProfile steers the generated script toward a companion character.
// ToneInstruction may be empty: the companion is still named but no style
// directive is added.
type PersonaProfile struct {
	Companion       string `json:"companion"`
	ToneInstruction string `json:"tone_instruction"`
	OpeningSuffix   string `json:"opening_suffix,omitempty"`
}

// AudioChunk is one payload frame from the synthesizer, in emission order.
type AudioChunk []byte

// GuideJob is an async generation request tracked in Redis.
type GuideJob struct {
	ID         uuid.UUID      `json:"id"`
	Status     JobStatus      `json:"status"`
	Request    GuideRequest   `json:"request"`
	Result     *GuideResponse `json:"result,omitempty"`
	Error      *string        `json:"error,omitempty"`
	ErrorKind  *string        `json:"error_kind,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// GuideRun is one pipeline execution recorded in the run log.
type GuideRun struct {
	ID              uuid.UUID  `json:"id"`
	JobID           *uuid.UUID `json:"job_id,omitempty"`
	PlaceName       string     `json:"place_name"`
	Language        string     `json:"language"`
	Mode            Mode       `json:"mode"`
	VoiceSelector   string     `json:"voice_selector"`
	ProfileKnown    bool       `json:"profile_known"`
	VoiceID         string     `json:"voice_id"`
	Status          JobStatus  `json:"status"`
	ErrorKind       *string    `json:"error_kind,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	PromptChars     int        `json:"prompt_chars"`
	ScriptChars     int        `json:"script_chars"`
	AudioBytes      int        `json:"audio_bytes"`
	AudioDurationMs int        `json:"audio_duration_ms"`
	ElapsedMs       int        `json:"elapsed_ms"`
	CreatedAt       time.Time  `json:"created_at"`
}

// DTOs for API requests and responses

// GuideConfig is the free-form "config" object of the request body. Speed is
// accepted for compatibility with older clients and ignored.
type GuideConfig struct {
	Voice     string   `json:"voice,omitempty"`
	Companion string   `json:"companion,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

type GenerateGuideRequest struct {
	Text   string      `json:"text"`
	Title  string      `json:"title"`
	Lang   string      `json:"lang"`
	Mode   string      `json:"mode"`
	Config GuideConfig `json:"config"`
}

// Normalize applies the silent defaults for missing fields. defaultSelector is
// the variant's default voice/companion key. No field value is ever rejected.
func (r GenerateGuideRequest) Normalize(defaultSelector string) GuideRequest {
	placeName := r.Title
	if placeName == "" {
		placeName = DefaultPlaceName
	}

	lang := strings.TrimSpace(r.Lang)
	if lang == "" {
		lang = DefaultLanguage
	}

	// Anything other than "simple" is treated as the long-form guide
	mode := DefaultMode
	if Mode(r.Mode) == ModeSimple {
		mode = ModeSimple
	}

	selector := r.Config.Companion
	if selector == "" {
		selector = r.Config.Voice
	}
	if selector == "" {
		selector = defaultSelector
	}

	return GuideRequest{
		SourceText:    r.Text,
		PlaceName:     placeName,
		Language:      lang,
		Mode:          mode,
		VoiceSelector: selector,
	}
}

// GuideResponse is the success artifact: script plus playable audio.
type GuideResponse struct {
	Script   string `json:"script"`
	AudioURI string `json:"audio_uri"`
}

// ErrorResponse is the failure artifact. It never carries partial results.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type CreateGuideJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

type ProfileSummary struct {
	Selector   string          `json:"selector"`
	Acoustic   AcousticProfile `json:"acoustic"`
	HasPersona bool            `json:"has_persona"`
	IsDefault  bool            `json:"is_default"`
}

type ListProfilesResponse struct {
	Variant  string           `json:"variant"`
	Language string           `json:"language"`
	Default  AcousticProfile  `json:"default"`
	Profiles []ProfileSummary `json:"profiles"`
}

// HealthResponse reports liveness. Redis and QueueLength are set only when
// async generation is enabled.
type HealthResponse struct {
	Status      string `json:"status"`
	Redis       string `json:"redis,omitempty"`
	QueueLength *int64 `json:"queue_length,omitempty"`
}

type ListRunsResponse struct {
	Runs   []GuideRun `json:"runs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
