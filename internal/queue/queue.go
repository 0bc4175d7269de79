package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/bobarin/placeguide/internal/models"
)

const (
	QueueGenerateGuide = "queue:generate_guide"

	jobKeyPrefix   = "guide:job:"
	defaultJobTTL  = time.Hour
	connectTimeout = 5 * time.Second
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

type Queue struct {
	client *redis.Client
	jobTTL time.Duration
}

// Job is the queue message. The job state itself lives under its own key so
// that status reads never touch the list.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func New(redisURL string, jobTTL time.Duration) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, jobTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, jobTTL time.Duration) *Queue {
	if jobTTL <= 0 {
		jobTTL = defaultJobTTL
	}
	return &Queue{client: client, jobTTL: jobTTL}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Ping reports whether Redis is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

// SaveJob writes the job state and restarts its TTL.
func (q *Queue) SaveJob(ctx context.Context, job *models.GuideJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal guide job: %w", err)
	}
	if err := q.client.Set(ctx, jobKey(job.ID), data, q.jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to save guide job %s: %w", job.ID, err)
	}
	return nil
}

func (q *Queue) GetJob(ctx context.Context, id uuid.UUID) (*models.GuideJob, error) {
	data, err := q.client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guide job %s: %w", id, err)
	}

	var job models.GuideJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guide job: %w", err)
	}
	return &job, nil
}

// EnqueueGenerateGuide stores a queued job and pushes it for the workers.
func (q *Queue) EnqueueGenerateGuide(ctx context.Context, req models.GuideRequest) (*models.GuideJob, error) {
	job := &models.GuideJob{
		ID:        uuid.New(),
		Status:    models.JobStatusQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}

	if err := q.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	msg := &Job{ID: job.ID, Type: "generate_guide"}
	if err := q.Enqueue(ctx, QueueGenerateGuide, msg); err != nil {
		return nil, fmt.Errorf("failed to enqueue guide job: %w", err)
	}

	return job, nil
}
