package guide

import (
	"context"
	"encoding/base64"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobarin/placeguide/internal/audio"
	"github.com/bobarin/placeguide/internal/models"
	"github.com/bobarin/placeguide/internal/profiles"
	"github.com/bobarin/placeguide/internal/prompt"
)

// fakeGenerator records prompts and replies with a fixed script.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	script  string
	err     error
	block   bool
}

func (f *fakeGenerator) GenerateText(ctx context.Context, p string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.script, nil
}

// fakeSynthesizer yields the configured chunks, then err if set.
type fakeSynthesizer struct {
	mu       sync.Mutex
	calls    int
	profiles []models.AcousticProfile
	chunks   []models.AudioChunk
	err      error
	panicMsg string
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string, profile models.AcousticProfile) iter.Seq2[models.AudioChunk, error] {
	f.mu.Lock()
	f.calls++
	f.profiles = append(f.profiles, profile)
	f.mu.Unlock()

	return func(yield func(models.AudioChunk, error) bool) {
		if f.panicMsg != "" {
			panic(f.panicMsg)
		}
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []*models.GuideRun
}

func (f *fakeRecorder) RecordRun(ctx context.Context, run *models.GuideRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func newTestPipeline(t *testing.T, gen *fakeGenerator, synth *fakeSynthesizer, rec RunRecorder) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Table:       profiles.Companion(),
		Limits:      prompt.Limits{Simple: 1000, Detail: 2000},
		Generator:   gen,
		Synthesizer: synth,
		Timeout:     time.Second,
		Recorder:    rec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func scenarioRequest(selector string) models.GuideRequest {
	return models.GenerateGuideRequest{
		Text:   strings.Repeat("寺", 2500),
		Title:  "Sensoji Temple",
		Lang:   "ja",
		Mode:   "simple",
		Config: models.GuideConfig{Voice: selector},
	}.Normalize("dog")
}

func TestOfficialDefaultRecordedAsKnown(t *testing.T) {
	rec := &fakeRecorder{}
	p, err := New(Config{
		Table:       profiles.Official(),
		Generator:   &fakeGenerator{script: "Sensoji Templeへようこそ。"},
		Synthesizer: &fakeSynthesizer{chunks: []models.AudioChunk{[]byte("mp3")}},
		Timeout:     time.Second,
		Recorder:    rec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := models.GenerateGuideRequest{Title: "Sensoji Temple"}.Normalize(p.DefaultSelector())
	if _, err := p.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(rec.runs) != 1 || !rec.runs[0].ProfileKnown || rec.runs[0].VoiceSelector != "female" {
		t.Errorf("expected one known run for the female default, got %+v", rec.runs)
	}
}

func TestScenarioKnownSelector(t *testing.T) {
	gen := &fakeGenerator{script: "Sensoji Templeだワン！実は…"}
	synth := &fakeSynthesizer{chunks: []models.AudioChunk{[]byte("ID3"), []byte{0xff, 0xfb}, []byte("tail")}}
	p := newTestPipeline(t, gen, synth, nil)

	resp, err := p.Generate(context.Background(), scenarioRequest("dog"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.HasPrefix(resp.Script, "Sensoji Temple") {
		t.Errorf("script should open with the place name, got %q", resp.Script)
	}

	// Dog profile reached the synthesizer
	got := synth.profiles[0]
	if got.Rate() != "+10%" || got.Pitch() != "+5Hz" || got.VoiceID != "ja-JP-NanamiNeural" {
		t.Errorf("unexpected acoustic profile: %+v", got)
	}

	// Source truncated to 1000 chars
	src := gen.prompts[0][strings.LastIndex(gen.prompts[0], prompt.SourceMarkerJapanese)+len(prompt.SourceMarkerJapanese):]
	if src != strings.Repeat("寺", 1000) {
		t.Errorf("embedded source has %d chars, want 1000", len([]rune(src)))
	}

	// Chunks concatenated in order
	if !strings.HasPrefix(resp.AudioURI, audio.DataURIPrefix) {
		t.Fatalf("audio_uri prefix: %s", resp.AudioURI)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(resp.AudioURI, audio.DataURIPrefix))
	if err != nil {
		t.Fatalf("audio_uri is not valid base64: %v", err)
	}
	if string(decoded) != "ID3\xff\xfbtail" {
		t.Errorf("decoded audio = %q", decoded)
	}
}

func TestScenarioUnknownSelectorStillSucceeds(t *testing.T) {
	gen := &fakeGenerator{script: "Sensoji Temple!"}
	synth := &fakeSynthesizer{chunks: []models.AudioChunk{[]byte("mp3")}}
	rec := &fakeRecorder{}
	p := newTestPipeline(t, gen, synth, rec)

	if _, err := p.Generate(context.Background(), scenarioRequest("unicorn")); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := models.AcousticProfile{VoiceID: "ja-JP-NanamiNeural"}
	if synth.profiles[0] != want {
		t.Errorf("profile = %+v, want default %+v", synth.profiles[0], want)
	}

	// Companion named, no tone block
	if strings.Contains(gen.prompts[0], "【役割設定】") {
		t.Error("unknown ja companion should not carry a tone block")
	}

	if len(rec.runs) != 1 || rec.runs[0].ProfileKnown {
		t.Errorf("expected one run with profile_known=false, got %+v", rec.runs)
	}
}

func TestScenarioGenerationFailureSkipsSynthesis(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	synth := &fakeSynthesizer{chunks: []models.AudioChunk{[]byte("mp3")}}
	rec := &fakeRecorder{}
	p := newTestPipeline(t, gen, synth, rec)

	resp, err := p.Generate(context.Background(), scenarioRequest("dog"))
	if resp != nil {
		t.Errorf("expected no response, got %+v", resp)
	}
	if KindOf(err) != KindGeneration {
		t.Errorf("kind = %s, want generation", KindOf(err))
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry upstream detail: %v", err)
	}
	if synth.calls != 0 {
		t.Errorf("synthesizer invoked %d times after generation failure", synth.calls)
	}

	if len(rec.runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(rec.runs))
	}
	run := rec.runs[0]
	if run.Status != models.JobStatusFailed || run.ErrorKind == nil || *run.ErrorKind != "generation" {
		t.Errorf("unexpected run record: %+v", run)
	}
}

func TestSynthesisFailureIsAllOrNothing(t *testing.T) {
	gen := &fakeGenerator{script: "Tower!"}
	synth := &fakeSynthesizer{
		chunks: []models.AudioChunk{[]byte("partial")},
		err:    errors.New("voice not found"),
	}
	p := newTestPipeline(t, gen, synth, nil)

	resp, err := p.Generate(context.Background(), scenarioRequest("bear"))
	if resp != nil {
		t.Errorf("partial audio leaked: %+v", resp)
	}
	if KindOf(err) != KindSynthesis {
		t.Errorf("kind = %s, want synthesis", KindOf(err))
	}
}

func TestEmptyAudioIsSynthesisError(t *testing.T) {
	p := newTestPipeline(t, &fakeGenerator{script: "x"}, &fakeSynthesizer{}, nil)
	if _, err := p.Generate(context.Background(), scenarioRequest("dog")); KindOf(err) != KindSynthesis {
		t.Errorf("kind = %s, want synthesis", KindOf(err))
	}
}

func TestEmptyScriptIsGenerationError(t *testing.T) {
	synth := &fakeSynthesizer{chunks: []models.AudioChunk{[]byte("mp3")}}
	p := newTestPipeline(t, &fakeGenerator{script: "  \n"}, synth, nil)

	if _, err := p.Generate(context.Background(), scenarioRequest("dog")); KindOf(err) != KindGeneration {
		t.Errorf("kind = %s, want generation", KindOf(err))
	}
	if synth.calls != 0 {
		t.Error("synthesizer should not run for an empty script")
	}
}

func TestTimeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	synth := &fakeSynthesizer{}
	p, err := New(Config{
		Table:       profiles.Official(),
		Generator:   gen,
		Synthesizer: synth,
		Timeout:     20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Generate(context.Background(), scenarioRequest("female"))
	if KindOf(err) != KindTimeout {
		t.Errorf("kind = %s, want timeout (%v)", KindOf(err), err)
	}
	if synth.calls != 0 {
		t.Error("synthesizer should not run after a timed out generation")
	}
}

func TestPanicMapsToInternal(t *testing.T) {
	p := newTestPipeline(t, &fakeGenerator{script: "x"}, &fakeSynthesizer{panicMsg: "boom"}, nil)

	resp, err := p.Generate(context.Background(), scenarioRequest("dog"))
	if resp != nil {
		t.Error("expected no response after panic")
	}
	if KindOf(err) != KindInternal {
		t.Errorf("kind = %s, want internal", KindOf(err))
	}
}

func TestNewRequiresAdapters(t *testing.T) {
	if _, err := New(Config{Table: profiles.Companion(), Synthesizer: &fakeSynthesizer{}}); err == nil {
		t.Error("expected error without generator")
	}
	if _, err := New(Config{Table: profiles.Companion(), Generator: &fakeGenerator{}}); err == nil {
		t.Error("expected error without synthesizer")
	}
	if _, err := New(Config{Generator: &fakeGenerator{}, Synthesizer: &fakeSynthesizer{}}); err == nil {
		t.Error("expected error without table")
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("foreign errors should map to internal")
	}
	wrapped := &Error{Kind: KindSynthesis, Err: errors.New("x")}
	if !errors.Is(wrapped, wrapped.Err) {
		t.Error("Error should unwrap to its cause")
	}
}
