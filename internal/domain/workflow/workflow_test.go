package workflow_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/workflow"
)

func TestTransferFSM_HappyPath(t *testing.T) {
	path := []struct {
		ev   workflow.TransferEvent
		want entity.TransferStatus
	}{
		{workflow.EventApprove, entity.TransferApproved},
		{workflow.EventDispatch, entity.TransferDispatched},
		{workflow.EventDepart, entity.TransferInTransit},
		{workflow.EventDeliver, entity.TransferDeliveredPendingConfirm},
		{workflow.EventReceive, entity.TransferReceived},
		{workflow.EventDispute, entity.TransferDisputed},
		{workflow.EventReconcile, entity.TransferReconciled},
	}
	st := entity.TransferDraft
	for _, step := range path {
		next, err := workflow.NextTransferStatus(1, st, step.ev)
		require.NoError(t, err, "%s desde %s", step.ev, st)
		assert.Equal(t, step.want, next)
		st = next
	}
}

// Cierre: fuera de la tabla enumerada todo evento debe fallar con InvalidStateTransitionError.
func TestTransferFSM_Closure(t *testing.T) {
	allowed := map[entity.TransferStatus][]workflow.TransferEvent{
		entity.TransferDraft:                   {workflow.EventApprove, workflow.EventCancel},
		entity.TransferApproved:                {workflow.EventDispatch, workflow.EventCancel},
		entity.TransferDispatched:              {workflow.EventDepart},
		entity.TransferInTransit:               {workflow.EventDeliver},
		entity.TransferDeliveredPendingConfirm: {workflow.EventReceive},
		entity.TransferReceived:                {workflow.EventDispute, workflow.EventReconcile},
		entity.TransferDisputed:                {workflow.EventReconcile},
	}
	for _, st := range entity.TransferStatuses {
		for _, ev := range workflow.TransferEvents {
			_, err := workflow.NextTransferStatus(7, st, ev)
			ok := contains(allowed[st], ev)
			if ok {
				assert.NoError(t, err, "%s desde %s debe permitirse", ev, st)
				continue
			}
			require.Error(t, err, "%s desde %s debe rechazarse", ev, st)
			assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))
			var ist *domain.InvalidStateTransitionError
			require.ErrorAs(t, err, &ist)
			assert.Equal(t, int64(7), ist.ID)
			assert.Equal(t, string(st), ist.From)
		}
	}
}

func TestTransferFSM_TerminalStates(t *testing.T) {
	for _, st := range []entity.TransferStatus{entity.TransferReconciled, entity.TransferCancelled} {
		for _, ev := range workflow.TransferEvents {
			assert.False(t, workflow.CanTransfer(st, ev), "%s es terminal", st)
		}
	}
}

func TestDiscrepancyFSM(t *testing.T) {
	st, err := workflow.NextDiscrepancyStatus(1, entity.DiscrepancyOpen, workflow.EventReview)
	require.NoError(t, err)
	st, err = workflow.NextDiscrepancyStatus(1, st, workflow.EventResolve)
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyResolved, st)
	st, err = workflow.NextDiscrepancyStatus(1, st, workflow.EventReopen)
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyReopened, st)
	st, err = workflow.NextDiscrepancyStatus(1, st, workflow.EventReview)
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyUnderReview, st)

	_, err = workflow.NextDiscrepancyStatus(1, entity.DiscrepancyOpen, workflow.EventResolve)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "no se puede saltar la revisión")
	_, err = workflow.NextDiscrepancyStatus(1, entity.DiscrepancyUnderReview, workflow.EventReopen)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func contains(evs []workflow.TransferEvent, ev workflow.TransferEvent) bool {
	for _, e := range evs {
		if e == ev {
			return true
		}
	}
	return false
}
