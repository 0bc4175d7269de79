package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobarin/placeguide/internal/guide"
	"github.com/bobarin/placeguide/internal/logger"
	"github.com/bobarin/placeguide/internal/models"
	"github.com/bobarin/placeguide/internal/queue"
)

const (
	dequeueTimeout = 5 * time.Second
	saveTimeout    = 5 * time.Second
)

// Runner executes one guide request; *guide.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req models.GuideRequest, jobID *uuid.UUID) (*models.GuideResponse, error)
}

type Worker struct {
	queue          *queue.Queue
	runner         Runner
	dequeueTimeout time.Duration
}

func New(q *queue.Queue, runner Runner) *Worker {
	return &Worker{
		queue:          q,
		runner:         runner,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start runs concurrency consumers of the guide queue and blocks until ctx is
// cancelled and every in-flight job has been stored.
func (w *Worker) Start(ctx context.Context, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	logger.Infof("[Worker] started with concurrency: %d", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processQueue(gctx, queue.QueueGenerateGuide)
			return nil
		})
	}

	err := g.Wait()
	logger.Infof("[Worker] shut down")
	return err
}

func (w *Worker) processQueue(ctx context.Context, queueName string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.queue.Dequeue(ctx, queueName, w.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("[Worker] error dequeuing from %s: %v", queueName, err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue // No job available, retry
		}

		w.handleGenerateGuide(ctx, msg)
	}
}

// handleGenerateGuide runs one job to completion. Failures are terminal; the
// job is stored as failed with its error kind and never retried.
func (w *Worker) handleGenerateGuide(ctx context.Context, msg *queue.Job) {
	job, err := w.queue.GetJob(ctx, msg.ID)
	if errors.Is(err, queue.ErrJobNotFound) {
		logger.Warnf("[Worker] job %s expired before processing, skipping", msg.ID)
		return
	}
	if err != nil {
		logger.Errorf("[Worker] failed to load job %s: %v", msg.ID, err)
		return
	}

	logger.Infof("[Worker] processing job %s (place=%q, lang=%s, mode=%s)",
		job.ID, job.Request.PlaceName, job.Request.Language, job.Request.Mode)

	started := time.Now().UTC()
	job.Status = models.JobStatusRunning
	job.StartedAt = &started
	if err := w.queue.SaveJob(ctx, job); err != nil {
		logger.Errorf("[Worker] failed to update job status: %v", err)
	}

	resp, runErr := w.runner.Run(ctx, job.Request, &job.ID)

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	if runErr != nil {
		kind := string(guide.KindOf(runErr))
		msg := runErr.Error()
		job.Status = models.JobStatusFailed
		job.Error = &msg
		job.ErrorKind = &kind
		logger.Warnf("[Worker] job %s failed (%s): %v", job.ID, kind, runErr)
	} else {
		job.Status = models.JobStatusSucceeded
		job.Result = resp
		logger.Infof("[Worker] job %s completed successfully", job.ID)
	}

	// Store the outcome even when shutdown cancelled ctx.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := w.queue.SaveJob(saveCtx, job); err != nil {
		logger.Errorf("[Worker] failed to store result of job %s: %v", job.ID, err)
	}
}
