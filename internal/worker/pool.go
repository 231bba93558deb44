package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"salescrm/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotifications = "jobs:notifications"

	JobEntrySubmitted = "entry_submitted"

	// MaxAttempts is how many times a job runs before it is dead-lettered.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Replays  int             `json:"replays,omitempty"` // times revived from the DLQ
}

// EntrySubmittedPayload describes a stored CRM entry.
type EntrySubmittedPayload struct {
	EntryID     uint      `json:"entry_id"`
	PersonName  string    `json:"person_name"`
	CompanyName string    `json:"company_name"`
	Case        string    `json:"case"`
	Status      string    `json:"status"`
	SalePerson  string    `json:"sale_person"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEntrySubmitted pushes a notification job for e.
func (d *Dispatcher) EnqueueEntrySubmitted(ctx context.Context, e model.CRMEntry) error {
	return d.enqueue(ctx, QueueNotifications, JobEntrySubmitted, EntrySubmittedPayload{
		EntryID:     e.ID,
		PersonName:  e.PersonName,
		CompanyName: e.CompanyName,
		Case:        e.Case,
		Status:      e.Status,
		SalePerson:  e.SalePerson,
		SubmittedAt: e.SubmissionTime,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Handler runs one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Pool consumes jobs from Redis lists and routes them by type.
type Pool struct {
	rdb        *redis.Client
	queues     []string
	handlers   map[string]Handler
	popTimeout time.Duration
	wg         sync.WaitGroup
}

func NewPool(rdb *redis.Client, queues ...string) *Pool {
	if len(queues) == 0 {
		queues = []string{QueueNotifications}
	}
	return &Pool{rdb: rdb, queues: queues, handlers: make(map[string]Handler), popTimeout: 5 * time.Second}
}

// Handle registers h for jobs of jobType. Call before Start.
func (p *Pool) Handle(jobType string, h Handler) {
	p.handlers[jobType] = h
}

// Start launches numWorkers goroutines consuming the pool's queues.
// Each goroutine blocks on BRPOP; zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", p.queues).Msg("worker pool started")
}

// Wait blocks until every worker has returned after ctx cancellation.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		}
		// Blocking pop; waits up to popTimeout then loops to check ctx.
		result, err := p.rdb.BRPop(ctx, p.popTimeout, p.queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.processJob(ctx, result[0], result[1])
	}
}

func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, Job{Payload: json.RawMessage(`null`)}, "malformed job: "+err.Error())
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job, "no handler for job type")
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Debug().Str("type", job.Type).Str("queue", queue).Int("attempt", job.Attempts).Msg("job processed")
		return
	}

	if job.Attempts >= MaxAttempts {
		SendToDLQ(ctx, p.rdb, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, requeueing")
	if perr := push(ctx, p.rdb, queue, job); perr != nil {
		log.Error().Err(perr).Str("queue", queue).Msg("failed to requeue job")
	}
}
