package models

import (
	"encoding/json"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	req := GenerateGuideRequest{}.Normalize("dog")

	if req.PlaceName != DefaultPlaceName {
		t.Errorf("expected place name %q, got %q", DefaultPlaceName, req.PlaceName)
	}
	if req.Language != "ja" {
		t.Errorf("expected language ja, got %q", req.Language)
	}
	if req.Mode != ModeDetail {
		t.Errorf("expected mode detail, got %q", req.Mode)
	}
	if req.VoiceSelector != "dog" {
		t.Errorf("expected selector dog, got %q", req.VoiceSelector)
	}
}

func TestNormalizeSelectorPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		config GuideConfig
		want   string
	}{
		{"companion wins", GuideConfig{Voice: "female", Companion: "bear"}, "bear"},
		{"voice used alone", GuideConfig{Voice: "dog"}, "dog"},
		{"variant default", GuideConfig{}, "female"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateGuideRequest{Config: tt.config}.Normalize("female").VoiceSelector
			if got != tt.want {
				t.Errorf("selector = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeUnknownModeFallsBackToDetail(t *testing.T) {
	req := GenerateGuideRequest{Mode: "verbose", Lang: "en"}.Normalize("dog")
	if req.Mode != ModeDetail {
		t.Errorf("expected detail for unknown mode, got %q", req.Mode)
	}
	if req.IsJapanese() {
		t.Error("en request should not take the Japanese branch")
	}
}

func TestAcousticProfileOffsets(t *testing.T) {
	tests := []struct {
		profile   AcousticProfile
		wantPitch string
		wantRate  string
	}{
		{AcousticProfile{}, "+0Hz", "+0%"},
		{AcousticProfile{PitchHz: 5, RatePercent: 10}, "+5Hz", "+10%"},
		{AcousticProfile{PitchHz: -15, RatePercent: -10}, "-15Hz", "-10%"},
	}

	for _, tt := range tests {
		if got := tt.profile.Pitch(); got != tt.wantPitch {
			t.Errorf("Pitch() = %q, want %q", got, tt.wantPitch)
		}
		if got := tt.profile.Rate(); got != tt.wantRate {
			t.Errorf("Rate() = %q, want %q", got, tt.wantRate)
		}
	}
}

func TestGenerateGuideRequestDecodesConfig(t *testing.T) {
	body := []byte(`{"text":"abc","title":"Sensoji Temple","lang":"ja","mode":"simple","config":{"voice":"dog","speed":1.2}}`)

	var req GenerateGuideRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if req.Config.Voice != "dog" || req.Config.Speed == nil {
		t.Errorf("unexpected config: %+v", req.Config)
	}
}

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusRunning,
		JobStatusSucceeded,
		JobStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}
