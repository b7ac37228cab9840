package mailer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Queue buffers non-urgent notifications in memory until the periodic drain
// job picks them up. Urgent notifications bypass it and go straight through
// Mailer.Send. Contents are lost on process restart; everything queued here
// is reconstructible from the next scheduler run.
type Queue struct {
	mailer    *Mailer
	batchSize int
	log       zerolog.Logger

	mu    sync.Mutex
	items []Message
}

func NewQueue(mailer *Mailer, batchSize int, log zerolog.Logger) *Queue {
	return &Queue{
		mailer:    mailer,
		batchSize: batchSize,
		log:       log.With().Str("component", "mail-queue").Logger(),
	}
}

func (q *Queue) Enqueue(msg Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain takes at most one batch off the queue and dispatches it with
// concurrent workers, logging aggregate counts. Failed messages are dropped,
// not requeued; the engines that produced them will regenerate anything that
// still matters on their next run.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	n := len(q.items)
	if n > q.batchSize {
		n = q.batchSize
	}
	batch := make([]Message, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	q.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var wg sync.WaitGroup
	results := make([]Result, len(batch))
	for i, msg := range batch {
		wg.Add(1)
		go func(i int, msg Message) {
			defer wg.Done()
			if err := q.mailer.limiter.Wait(ctx); err != nil {
				results[i] = Failed(err)
				return
			}
			results[i] = q.mailer.Send(ctx, msg)
		}(i, msg)
	}
	wg.Wait()

	delivered, failed := 0, 0
	for _, result := range results {
		if result.Delivered {
			delivered++
		} else {
			failed++
		}
	}
	q.log.Info().
		Int("batch", len(batch)).
		Int("delivered", delivered).
		Int("failed", failed).
		Msg("queue drained")
}
