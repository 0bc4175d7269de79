// Package guide runs the guide pipeline: resolve the voice selector, compose
// the prompt, generate the script, synthesize speech and assemble the response.
// A run either yields both script and audio or an *Error, never a partial
// result.
package guide

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bobarin/placeguide/internal/audio"
	"github.com/bobarin/placeguide/internal/logger"
	"github.com/bobarin/placeguide/internal/models"
	"github.com/bobarin/placeguide/internal/profiles"
	"github.com/bobarin/placeguide/internal/prompt"
	"github.com/bobarin/placeguide/internal/services"
)

const defaultTimeout = 120 * time.Second

// RunRecorder persists one row per pipeline execution.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.GuideRun) error
}

// Config is the immutable wiring of a Pipeline, built once at startup.
type Config struct {
	Table       *profiles.Table
	Limits      prompt.Limits
	Generator   services.TextGenerator
	Synthesizer services.SpeechSynthesizer
	Timeout     time.Duration
	Recorder    RunRecorder // optional
}

// Pipeline is safe for concurrent use; it holds no per-request state.
type Pipeline struct {
	table       *profiles.Table
	composer    *prompt.Composer
	generator   services.TextGenerator
	synthesizer services.SpeechSynthesizer
	timeout     time.Duration
	recorder    RunRecorder
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Table == nil {
		return nil, fmt.Errorf("profile table is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("speech synthesizer is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Pipeline{
		table:       cfg.Table,
		composer:    prompt.NewComposer(cfg.Limits),
		generator:   cfg.Generator,
		synthesizer: cfg.Synthesizer,
		timeout:     timeout,
		recorder:    cfg.Recorder,
	}, nil
}

// Table exposes the read-only profile table.
func (p *Pipeline) Table() *profiles.Table {
	return p.table
}

// DefaultSelector is the selector applied when a request names none.
func (p *Pipeline) DefaultSelector() string {
	return p.table.DefaultSelector
}

// Generate runs a synchronous request.
func (p *Pipeline) Generate(ctx context.Context, req models.GuideRequest) (*models.GuideResponse, error) {
	return p.Run(ctx, req, nil)
}

// runStats collects what the run log needs.
type runStats struct {
	resolution  profiles.Resolution
	promptChars int
	scriptChars int
	audioBytes  int
	audioData   []byte
}

// Run executes the pipeline under the per-request deadline. jobID links the
// run to an async job when set.
func (p *Pipeline) Run(ctx context.Context, req models.GuideRequest, jobID *uuid.UUID) (resp *models.GuideResponse, err error) {
	start := time.Now()
	stats := &runStats{}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Guide] panic during run (place=%q): %v", req.PlaceName, r)
			resp = nil
			err = &Error{Kind: KindInternal, Err: fmt.Errorf("unexpected failure: %v", r)}
		}
		p.record(ctx, req, jobID, stats, err, time.Since(start))
	}()

	resp, err = p.run(ctx, req, stats)
	if err != nil {
		logger.Warnf("[Guide] run failed (place=%q, lang=%s, mode=%s, selector=%s, kind=%s): %v",
			req.PlaceName, req.Language, req.Mode, req.VoiceSelector, KindOf(err), err)
		return nil, err
	}

	logger.Infof("[Guide] run succeeded (place=%q, lang=%s, mode=%s, selector=%s, script=%d chars, audio=%d bytes, elapsed=%s)",
		req.PlaceName, req.Language, req.Mode, req.VoiceSelector, stats.scriptChars, stats.audioBytes, time.Since(start).Round(time.Millisecond))
	return resp, nil
}

func (p *Pipeline) run(ctx context.Context, req models.GuideRequest, stats *runStats) (*models.GuideResponse, error) {
	// 1. Resolve; never fails
	res := p.table.Resolve(req.Language, req.VoiceSelector)
	stats.resolution = res
	if !res.Known {
		logger.Infof("[Guide] unknown selector %q, using default profile %s", req.VoiceSelector, res.Acoustic.VoiceID)
	}

	// 2. Compose; never fails
	promptText := p.composer.Compose(req, res.Persona)
	stats.promptChars = utf8.RuneCountInString(promptText)

	// 3. Generate the script
	script, err := p.generator.GenerateText(ctx, promptText)
	if err != nil {
		return nil, classify(ctx, KindGeneration, "text generation", err)
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, &Error{Kind: KindGeneration, Err: fmt.Errorf("text generation returned an empty script")}
	}
	stats.scriptChars = utf8.RuneCountInString(script)

	// 4. Synthesize; the stream is drained in order before anything is returned
	var chunks []models.AudioChunk
	for chunk, err := range p.synthesizer.Synthesize(ctx, script, res.Acoustic) {
		if err != nil {
			return nil, classify(ctx, KindSynthesis, "speech synthesis", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, KindSynthesis, "speech synthesis", err)
	}

	// 5. Assemble
	data := audio.Concat(chunks)
	if len(data) == 0 {
		return nil, &Error{Kind: KindSynthesis, Err: fmt.Errorf("speech synthesis produced no audio")}
	}
	stats.audioBytes = len(data)
	stats.audioData = data

	return &models.GuideResponse{
		Script:   script,
		AudioURI: audio.DataURI(data),
	}, nil
}

func (p *Pipeline) record(ctx context.Context, req models.GuideRequest, jobID *uuid.UUID, stats *runStats, runErr error, elapsed time.Duration) {
	if p.recorder == nil {
		return
	}

	run := &models.GuideRun{
		ID:            uuid.New(),
		JobID:         jobID,
		PlaceName:     req.PlaceName,
		Language:      req.Language,
		Mode:          req.Mode,
		VoiceSelector: req.VoiceSelector,
		ProfileKnown:  stats.resolution.Known,
		VoiceID:       stats.resolution.Acoustic.VoiceID,
		Status:        models.JobStatusSucceeded,
		PromptChars:   stats.promptChars,
		ScriptChars:   stats.scriptChars,
		AudioBytes:    stats.audioBytes,
		ElapsedMs:     int(elapsed.Milliseconds()),
		CreatedAt:     time.Now().UTC(),
	}

	if runErr != nil {
		kind := string(KindOf(runErr))
		msg := runErr.Error()
		run.Status = models.JobStatusFailed
		run.ErrorKind = &kind
		run.ErrorMessage = &msg
	} else if len(stats.audioData) > 0 {
		if d, err := audio.Duration(stats.audioData); err != nil {
			logger.Debugf("[Guide] could not probe audio duration: %v", err)
		} else {
			run.AudioDurationMs = int(d.Milliseconds())
		}
	}

	// Outlive the request deadline; the response is already decided.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.recorder.RecordRun(recordCtx, run); err != nil {
		logger.Errorf("[Guide] failed to record run %s: %v", run.ID, err)
	}
}
