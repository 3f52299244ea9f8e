package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ghnotify/internal/discord"
	"ghnotify/internal/eventbus"
	"ghnotify/internal/format"
	logx "ghnotify/pkg/logx"
)

type fakeSender struct {
	calls   []sentBatch
	failOn  int // 1-based batch index to fail, 0 = never
	nextIdx int
}

type sentBatch struct {
	content string
	embeds  []discord.Embed
}

func (f *fakeSender) SendEmbeds(_ context.Context, content string, embeds []discord.Embed) error {
	f.nextIdx++
	if f.failOn != 0 && f.nextIdx == f.failOn {
		return errors.New("webhook down")
	}
	f.calls = append(f.calls, sentBatch{content: content, embeds: embeds})
	return nil
}

func records(n int) []format.Record {
	out := make([]format.Record, n)
	for i := range out {
		out[i] = format.Record{Title: fmt.Sprintf("item %02d", i)}
	}
	return out
}

func fastCfg() Config { return Config{BatchSize: 10, RatePerSec: 10000} }

func TestPublishBatching(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	p := New(sender, nil, fastCfg(), logx.Nop())

	delivered, err := p.Publish(context.Background(), records(23))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if delivered != 3 {
		t.Fatalf("delivered = %d, want 3", delivered)
	}
	sizes := []int{10, 10, 3}
	if len(sender.calls) != 3 {
		t.Fatalf("calls = %d", len(sender.calls))
	}
	for i, call := range sender.calls {
		if len(call.embeds) != sizes[i] {
			t.Fatalf("batch %d size = %d, want %d", i+1, len(call.embeds), sizes[i])
		}
	}
	// Order preserved: first embed of first batch is the oldest record.
	if sender.calls[0].embeds[0].Title != "item 00" {
		t.Fatalf("first embed = %q", sender.calls[0].embeds[0].Title)
	}
	if sender.calls[2].embeds[2].Title != "item 22" {
		t.Fatalf("last embed = %q", sender.calls[2].embeds[2].Title)
	}
}

func TestPublishContentLine(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	p := New(sender, nil, fastCfg(), logx.Nop())

	if _, err := p.Publish(context.Background(), records(11)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := sender.calls[0].content; got != "📬 **10 new GitHub notifications**" {
		t.Fatalf("content = %q", got)
	}
	if got := sender.calls[1].content; got != "📬 **1 new GitHub notification**" {
		t.Fatalf("content = %q", got)
	}
}

func TestPublishAbortsOnFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failOn: 2}
	p := New(sender, nil, fastCfg(), logx.Nop())

	delivered, err := p.Publish(context.Background(), records(23))
	if err == nil {
		t.Fatalf("want error")
	}
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	// Batch 3 never attempted.
	if sender.nextIdx != 2 {
		t.Fatalf("attempts = %d, want 2", sender.nextIdx)
	}
}

func TestPublishEmitsBatchEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	sender := &fakeSender{}
	p := New(sender, bus, fastCfg(), logx.Nop())

	if _, err := p.Publish(context.Background(), records(23)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	sizes := []int{10, 10, 3}
	for i, want := range sizes {
		select {
		case e := <-events:
			if e.Type != eventbus.TypeBatchSent {
				t.Fatalf("event %d type = %q", i+1, e.Type)
			}
			if got, _ := e.Data.(int); got != want {
				t.Fatalf("event %d embeds = %v, want %d", i+1, e.Data, want)
			}
		default:
			t.Fatalf("missing batch event %d", i+1)
		}
	}
}

func TestPublishEmpty(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	p := New(sender, nil, fastCfg(), logx.Nop())
	delivered, err := p.Publish(context.Background(), nil)
	if err != nil || delivered != 0 || sender.nextIdx != 0 {
		t.Fatalf("delivered=%d err=%v attempts=%d", delivered, err, sender.nextIdx)
	}
}

func TestPublishHonorsCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{}
	// Slow limiter so Wait observes the canceled context.
	p := New(sender, nil, Config{BatchSize: 10, RatePerSec: 0.001}, logx.Nop())

	if _, err := p.Publish(ctx, records(5)); err == nil {
		t.Fatalf("want context error")
	}
	if sender.nextIdx != 0 {
		t.Fatalf("attempts = %d, want 0", sender.nextIdx)
	}
}
