// Package events entrega los eventos de dominio después del commit. La entrega es asíncrona y
// best-effort: un fallo de un destino se registra y nunca revierte ni bloquea la operación.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// Sink destino de eventos (log, stream, webhook...).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev entity.DomainEvent) error
}

// AsyncPublisher cola en memoria con un worker que reparte cada evento a todos los destinos.
type AsyncPublisher struct {
	queue   chan entity.DomainEvent
	sinks   []Sink
	log     *logger.Logger
	timeout time.Duration

	mu     sync.RWMutex // protege closed frente al cierre de queue
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncPublisher construye el publicador e inicia el worker. buffer <= 0 usa 256.
func NewAsyncPublisher(log *logger.Logger, buffer int, sinks ...Sink) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		queue:   make(chan entity.DomainEvent, buffer),
		sinks:   sinks,
		log:     log,
		timeout: 5 * time.Second,
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// Publish encola sin bloquear. Con la cola llena o el publicador cerrado el evento se descarta y se registra.
func (p *AsyncPublisher) Publish(_ context.Context, events ...entity.DomainEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ev := range events {
		if p.closed {
			p.dropped(ev, "publicador cerrado; evento descartado")
			continue
		}
		select {
		case p.queue <- ev:
		default:
			p.dropped(ev, "cola de eventos llena; evento descartado")
		}
	}
}

func (p *AsyncPublisher) dropped(ev entity.DomainEvent, msg string) {
	p.log.Error().
		Str("event_id", ev.ID.String()).
		Str("type", ev.Type).
		Int64("aggregate_id", ev.AggregateID).
		Msg(msg)
}

func (p *AsyncPublisher) loop() {
	defer p.wg.Done()
	for ev := range p.queue {
		for _, s := range p.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := s.Deliver(ctx, ev); err != nil {
				p.log.Error().Err(err).
					Str("sink", s.Name()).
					Str("event_id", ev.ID.String()).
					Str("type", ev.Type).
					Msg("entrega de evento fallida")
			}
			cancel()
		}
	}
}

// Close deja de aceptar eventos y espera a que se entreguen los encolados. Es idempotente.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
