package workflow

import (
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// DiscrepancyEvent evento del flujo de discrepancias.
type DiscrepancyEvent string

const (
	EventReview  DiscrepancyEvent = "review"
	EventResolve DiscrepancyEvent = "resolve"
	EventReopen  DiscrepancyEvent = "reopen"
)

// DiscrepancyEvents todos los eventos.
var DiscrepancyEvents = []DiscrepancyEvent{EventReview, EventResolve, EventReopen}

type discrepancyEdge struct {
	from  entity.DiscrepancyStatus
	event DiscrepancyEvent
}

var discrepancyTable = map[discrepancyEdge]entity.DiscrepancyStatus{
	{entity.DiscrepancyOpen, EventReview}:         entity.DiscrepancyUnderReview,
	{entity.DiscrepancyReopened, EventReview}:     entity.DiscrepancyUnderReview,
	{entity.DiscrepancyUnderReview, EventResolve}: entity.DiscrepancyResolved,
	{entity.DiscrepancyResolved, EventReopen}:     entity.DiscrepancyReopened,
}

// NextDiscrepancyStatus devuelve el estado destino o InvalidStateTransitionError.
func NextDiscrepancyStatus(id int64, from entity.DiscrepancyStatus, ev DiscrepancyEvent) (entity.DiscrepancyStatus, error) {
	to, ok := discrepancyTable[discrepancyEdge{from, ev}]
	if !ok {
		return from, &domain.InvalidStateTransitionError{Entity: "discrepancy", ID: id, From: string(from), Event: string(ev)}
	}
	return to, nil
}
