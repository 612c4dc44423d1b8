// Package workflow contiene las máquinas de estado explícitas del dominio.
// Cada tabla es (estado × evento → estado); cualquier par ausente es una transición inválida.
package workflow

import (
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// TransferEvent evento que mueve un traslado de estado.
type TransferEvent string

const (
	EventApprove   TransferEvent = "approve"
	EventDispatch  TransferEvent = "dispatch"
	EventDepart    TransferEvent = "depart" // se aplica junto con dispatch al crear el Shipment
	EventDeliver   TransferEvent = "deliver"
	EventReceive   TransferEvent = "receive"
	EventDispute   TransferEvent = "dispute"
	EventReconcile TransferEvent = "reconcile"
	EventCancel    TransferEvent = "cancel"
)

// TransferEvents todos los eventos (para pruebas exhaustivas).
var TransferEvents = []TransferEvent{
	EventApprove, EventDispatch, EventDepart, EventDeliver,
	EventReceive, EventDispute, EventReconcile, EventCancel,
}

type transferEdge struct {
	from  entity.TransferStatus
	event TransferEvent
}

var transferTable = map[transferEdge]entity.TransferStatus{
	{entity.TransferDraft, EventApprove}:                   entity.TransferApproved,
	{entity.TransferApproved, EventDispatch}:               entity.TransferDispatched,
	{entity.TransferDispatched, EventDepart}:               entity.TransferInTransit,
	{entity.TransferInTransit, EventDeliver}:               entity.TransferDeliveredPendingConfirm,
	{entity.TransferDeliveredPendingConfirm, EventReceive}: entity.TransferReceived,
	{entity.TransferReceived, EventDispute}:                entity.TransferDisputed,
	{entity.TransferReceived, EventReconcile}:              entity.TransferReconciled,
	{entity.TransferDisputed, EventReconcile}:              entity.TransferReconciled,
	{entity.TransferDraft, EventCancel}:                    entity.TransferCancelled,
	{entity.TransferApproved, EventCancel}:                 entity.TransferCancelled,
}

// NextTransferStatus devuelve el estado destino o InvalidStateTransitionError.
func NextTransferStatus(id int64, from entity.TransferStatus, ev TransferEvent) (entity.TransferStatus, error) {
	to, ok := transferTable[transferEdge{from, ev}]
	if !ok {
		return from, &domain.InvalidStateTransitionError{Entity: "transfer", ID: id, From: string(from), Event: string(ev)}
	}
	return to, nil
}

// CanTransfer indica si el evento es válido desde el estado.
func CanTransfer(from entity.TransferStatus, ev TransferEvent) bool {
	_, ok := transferTable[transferEdge{from, ev}]
	return ok
}
