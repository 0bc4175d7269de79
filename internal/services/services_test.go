package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bobarin/placeguide/internal/models"
)

func TestElevenLabsSpeed(t *testing.T) {
	tests := []struct {
		rate int
		want float64
	}{
		{0, 1.0},
		{10, 1.1},
		{-10, 0.9},
		{50, elevenLabsMaxSpeed},
		{-50, elevenLabsMinSpeed},
	}

	for _, tt := range tests {
		got := elevenLabsSpeed(tt.rate)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("elevenLabsSpeed(%d) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestElevenLabsSynthesizeStreamsBody(t *testing.T) {
	payload := strings.Repeat("ID3", elevenLabsReadSize) // spans several reads

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/voice-1/stream") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body elevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.VoiceSettings == nil || body.VoiceSettings.Speed != 1.1 {
			t.Errorf("unexpected voice settings: %+v", body.VoiceSettings)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	svc := NewElevenLabsService("secret", "voice-1").WithBaseURL(srv.URL)

	var got strings.Builder
	for chunk, err := range svc.Synthesize(context.Background(), "hello", models.AcousticProfile{RatePercent: 10}) {
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		got.Write(chunk)
	}
	if got.String() != payload {
		t.Errorf("reassembled %d bytes, want %d", got.Len(), len(payload))
	}
}

func TestElevenLabsSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"voice_not_found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewElevenLabsService("secret", "missing").WithBaseURL(srv.URL)

	var gotErr error
	chunks := 0
	for chunk, err := range svc.Synthesize(context.Background(), "hello", models.AcousticProfile{}) {
		if err != nil {
			gotErr = err
			break
		}
		chunks += len(chunk)
	}
	if gotErr == nil || !strings.Contains(gotErr.Error(), "404") {
		t.Errorf("expected status error, got %v", gotErr)
	}
	if chunks != 0 {
		t.Errorf("no audio should be yielded on failure, got %d bytes", chunks)
	}
}

func TestOpenAIGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 1 || req.Messages[0].Content != "prompt" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"  Sensoji Temple! Actually...  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"
	svc := NewOpenAIServiceWithConfig(cfg, "")

	text, err := svc.GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "Sensoji Temple! Actually..." {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAIGenerateTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"

	if _, err := NewOpenAIServiceWithConfig(cfg, "").GenerateText(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	svc := NewGeminiService("", "")
	if svc.model != defaultGeminiModel {
		t.Errorf("model = %q", svc.model)
	}
	if _, err := svc.GenerateText(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error without API key")
	}
}
