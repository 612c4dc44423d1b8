package entity

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de eventos de dominio emitidos tras el commit.
const (
	EventTransferCreated      = "TransferCreated"
	EventTransferDispatched   = "TransferDispatched"
	EventTransferReceived     = "TransferReceived"
	EventTransferCancelled    = "TransferCancelled"
	EventTransferReconciled   = "TransferReconciled"
	EventDiscrepancyRaised    = "DiscrepancyRaised"
	EventDiscrepancyEscalated = "DiscrepancyEscalated"
	EventDiscrepancyResolved  = "DiscrepancyResolved"
)

// DomainEvent evento para el subsistema de notificaciones; el núcleo no sabe cómo se entrega.
type DomainEvent struct {
	ID            uuid.UUID
	Type          string
	AggregateKind string
	AggregateID   int64
	Actor         string
	OccurredAt    time.Time
	Payload       map[string]any
}

// NewDomainEvent construye un evento con ID nuevo.
func NewDomainEvent(typ, aggregateKind string, aggregateID int64, actor string, at time.Time, payload map[string]any) DomainEvent {
	return DomainEvent{
		ID:            uuid.New(),
		Type:          typ,
		AggregateKind: aggregateKind,
		AggregateID:   aggregateID,
		Actor:         actor,
		OccurredAt:    at,
		Payload:       payload,
	}
}
