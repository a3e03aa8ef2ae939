package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type DispatcherConfig struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Workers: 4, QueueSize: 256, PublishTimeout: 5 * time.Second}
}

// Dispatcher delivers events to every sink from a fixed worker pool so
// request handlers never wait on Kafka, Redis or WhatsApp. Delivery is best
// effort: a full queue drops the event and sink errors are only logged.
type Dispatcher struct {
	sinks  []Sink
	cfg    DispatcherConfig
	logger *logrus.Logger

	queue chan OrderEvent
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(cfg DispatcherConfig, logger *logrus.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:  sinks,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan OrderEvent, cfg.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.WithFields(logrus.Fields{
		"workers": d.cfg.Workers,
		"sinks":   len(d.sinks),
	}).Info("Event dispatcher started")
}

// Publish enqueues the event without blocking.
func (d *Dispatcher) Publish(event OrderEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return
	}

	select {
	case d.queue <- event:
	default:
		d.logger.WithFields(logrus.Fields{
			"event_type": event.Type,
			"order_id":   event.OrderID,
		}).Warn("Event queue full, dropping event")
	}
}

// Stop drains queued events and waits for the workers, or gives up when ctx
// is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event OrderEvent) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		err := sink.Publish(ctx, event)
		cancel()
		if err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"sink":       sink.Name(),
				"event_type": event.Type,
				"order_id":   event.OrderID,
			}).Warn("Failed to publish order event")
		}
	}
}
