package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// LogSink escribe cada evento como una línea estructurada.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink construye el destino de log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, ev entity.DomainEvent) error {
	s.log.Info().
		Str("event_id", ev.ID.String()).
		Str("type", ev.Type).
		Str("aggregate", ev.AggregateKind).
		Int64("aggregate_id", ev.AggregateID).
		Str("actor", ev.Actor).
		Time("occurred_at", ev.OccurredAt).
		Interface("payload", ev.Payload).
		Msg("evento de dominio")
	return nil
}

// RedisStreamSink agrega cada evento a un stream de Redis (XADD) para el subsistema de alertas.
type RedisStreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamSink construye el destino. maxLen > 0 recorta el stream de forma aproximada.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Name() string { return "redis-stream:" + s.stream }

func (s *RedisStreamSink) Deliver(ctx context.Context, ev entity.DomainEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("serializar payload: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id":       ev.ID.String(),
			"type":           ev.Type,
			"aggregate_kind": ev.AggregateKind,
			"aggregate_id":   strconv.FormatInt(ev.AggregateID, 10),
			"actor":          ev.Actor,
			"occurred_at":    ev.OccurredAt.UTC().Format(time.RFC3339Nano),
			"payload":        string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
