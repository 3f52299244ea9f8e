// Package publish partitions display records into webhook-sized batches and
// posts them in order.
package publish

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"ghnotify/internal/discord"
	"ghnotify/internal/eventbus"
	"ghnotify/internal/format"
	logx "ghnotify/pkg/logx"
)

// maxBatchSize is the webhook embed limit per message.
const maxBatchSize = 10

// Sender posts one webhook message. Satisfied by discord.WebhookClient.
type Sender interface {
	SendEmbeds(ctx context.Context, content string, embeds []discord.Embed) error
}

type Config struct {
	BatchSize  int     // clamped to [1, 10]; default 10
	RatePerSec float64 // batch pacing; default 1
}

// Publisher posts records oldest-first, one message per batch, pacing
// batches through a rate limiter. A failed batch aborts the remainder:
// earlier batches stay delivered, the caller decides what that means for
// the checkpoint.
type Publisher struct {
	sender Sender
	bus    eventbus.Bus
	log    logx.Logger

	mu        sync.Mutex
	batchSize int
	limiter   *rate.Limiter
}

func New(sender Sender, bus eventbus.Bus, cfg Config, log logx.Logger) *Publisher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	p := &Publisher{sender: sender, bus: bus, log: log}
	p.Apply(cfg)
	return p
}

// Apply swaps batch size and pacing (config hot reload).
func (p *Publisher) Apply(cfg Config) {
	size := cfg.BatchSize
	if size <= 0 || size > maxBatchSize {
		size = maxBatchSize
	}
	per := cfg.RatePerSec
	if per <= 0 {
		per = 1
	}
	p.mu.Lock()
	p.batchSize = size
	p.limiter = rate.NewLimiter(rate.Limit(per), 1)
	p.mu.Unlock()
}

func (p *Publisher) settings() (int, *rate.Limiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batchSize, p.limiter
}

// Publish sends all records and returns how many batches were delivered.
// Records must already be in publish order (oldest first).
func (p *Publisher) Publish(ctx context.Context, recs []format.Record) (delivered int, err error) {
	if len(recs) == 0 {
		return 0, nil
	}
	size, limiter := p.settings()

	total := (len(recs) + size - 1) / size
	for i := 0; i < len(recs); i += size {
		if err := limiter.Wait(ctx); err != nil {
			return delivered, fmt.Errorf("publish: batch %d/%d: %w", delivered+1, total, err)
		}

		batch := recs[i:min(i+size, len(recs))]
		embeds := make([]discord.Embed, 0, len(batch))
		for _, rec := range batch {
			embeds = append(embeds, discord.EmbedFromRecord(rec))
		}

		if err := p.sender.SendEmbeds(ctx, contentLine(len(batch)), embeds); err != nil {
			return delivered, fmt.Errorf("publish: batch %d/%d: %w", delivered+1, total, err)
		}
		delivered++
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeBatchSent, Data: len(batch)})
		p.log.Debug("batch delivered",
			logx.Int("batch", delivered), logx.Int("of", total), logx.Int("embeds", len(batch)))
	}
	return delivered, nil
}

func contentLine(n int) string {
	if n == 1 {
		return "📬 **1 new GitHub notification**"
	}
	return fmt.Sprintf("📬 **%d new GitHub notifications**", n)
}
