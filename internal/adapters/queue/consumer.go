package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// consumer polls a topic on a fixed interval and hands ready messages to the
// handler, at most opts.Concurrency in flight at a time.
type consumer struct {
	provider *Provider
	topic    string
	handler  ports.Handler
	opts     ports.ConsumeOptions
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// Consume registers a handler for a topic and starts the polling loop. The
// returned stop function cancels the loop; in-flight deliveries finalize
// before it returns.
func (p *Provider) Consume(topic string, handler ports.Handler, opts ports.ConsumeOptions) (func(), error) {
	if handler == nil {
		return nil, &domain.ValidationError{Field: "handler", Reason: "handler cannot be nil"}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.ErrClosed
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = p.config.Concurrency
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = p.config.PollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &consumer{
		provider: p,
		topic:    topic,
		handler:  handler,
		opts:     opts,
		logger:   p.logger.With("topic", topic),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	p.consumers = append(p.consumers, c)
	p.wg.Add(1)
	p.mu.Unlock()

	go c.run(ctx)

	p.logger.Info("consumer started",
		"topic", topic,
		"concurrency", opts.Concurrency,
		"poll_interval", opts.PollInterval,
	)
	return c.stop, nil
}

func (c *consumer) stop() {
	c.cancel()
	<-c.done
}

func (c *consumer) run(ctx context.Context) {
	defer c.provider.wg.Done()
	defer close(c.done)

	// Claims left behind by an earlier process are already past their TTL by
	// the time a consumer comes back for the topic.
	c.sweepStaleClaims()

	slots := make(chan struct{}, c.opts.Concurrency)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	sweep := time.NewTicker(c.provider.config.ClaimTTL)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			// Drain in-flight handlers before returning.
			for i := 0; i < c.opts.Concurrency; i++ {
				slots <- struct{}{}
			}
			return
		case <-ticker.C:
			c.drainReady(ctx, slots)
		case <-sweep.C:
			c.sweepStaleClaims()
		}
	}
}

func (c *consumer) sweepStaleClaims() {
	if _, err := c.provider.reclaimStale(c.topic, time.Now()); err != nil && !domain.IsClosed(err) {
		c.logger.Error("stale claim sweep failed", "error", err.Error())
	}
}

// drainReady claims and dispatches until the topic has no ready message or
// all concurrency slots are taken.
func (c *consumer) drainReady(ctx context.Context, slots chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case slots <- struct{}{}:
		default:
			return
		}

		d, ok, err := c.provider.claim(c.topic)
		if err != nil {
			<-slots
			if !domain.IsClosed(err) {
				c.logger.Error("claim failed", "error", err.Error())
			}
			return
		}
		if !ok {
			<-slots
			return
		}

		go func(d *delivery) {
			defer func() { <-slots }()
			c.dispatch(ctx, d)
		}(d)
	}
}

func (c *consumer) dispatch(ctx context.Context, d *delivery) {
	defer func() {
		if r := recover(); r != nil {
			d.failIfOpen(fmt.Sprintf("handler panicked: %v", r))
		}
	}()

	c.handler(ctx, d)
	d.failIfOpen("handler returned without finalizing")
}
