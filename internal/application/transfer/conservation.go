package transfer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// ConservationLine cuadre de una línea: lo despachado entra completo al destino y toda diferencia
// con el conteo queda explicada por una corrección asentada o por una discrepancia pendiente.
type ConservationLine struct {
	TransferLineID int64
	ProductID      int64
	Expected       decimal.Decimal
	Dispatched     decimal.Decimal // -(transfer_out + transfer_reversal)
	Received       decimal.Decimal // transfer_in
	Counted        decimal.Decimal // conteo físico de la recepción
	Corrections    decimal.Decimal // adjustment + wastage + transfer_hold en destino
	Outstanding    decimal.Decimal // deltas sin asiento: líneas pendientes y sobrante desechado
	InTransit      decimal.Decimal // Dispatched - Received
	Unexplained    decimal.Decimal
}

// ConservationReport cuadre del traslado completo.
type ConservationReport struct {
	TransferID     int64
	Status         entity.TransferStatus
	Lines          []ConservationLine
	SourceNet      decimal.Decimal
	DestinationNet decimal.Decimal
	NetChange      decimal.Decimal // suma de todos los asientos del traslado (pérdida si es negativa)
	Balanced       bool
}

// ConservationReport arma el cuadre a partir del libro, la recepción y las discrepancias.
func (s *Service) ConservationReport(ctx context.Context, transferID int64) (*ConservationReport, error) {
	t, err := s.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Ledger.ListByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.repos.Receipts.GetByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	discrepancies, err := s.repos.Discrepancies.ListByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	rep := &ConservationReport{TransferID: t.ID, Status: t.Status, Balanced: true}
	index := make(map[int64]int, len(t.Lines))
	for i, l := range t.Lines {
		index[l.ID] = i
		rep.Lines = append(rep.Lines, ConservationLine{
			TransferLineID: l.ID,
			ProductID:      l.ProductID,
			Expected:       l.ExpectedQuantity,
		})
	}

	for _, e := range entries {
		rep.NetChange = rep.NetChange.Add(e.Quantity)
		switch e.LocationID {
		case t.SourceLocationID:
			rep.SourceNet = rep.SourceNet.Add(e.Quantity)
		case t.DestinationLocationID:
			rep.DestinationNet = rep.DestinationNet.Add(e.Quantity)
		}
		i, ok := index[e.TransferLineID]
		if !ok {
			continue
		}
		cl := &rep.Lines[i]
		switch e.Kind {
		case entity.MovementTransferOut, entity.MovementTransferReversal:
			cl.Dispatched = cl.Dispatched.Sub(e.Quantity)
		case entity.MovementTransferIn:
			cl.Received = cl.Received.Add(e.Quantity)
		case entity.MovementAdjustment, entity.MovementWastage, entity.MovementTransferHold:
			cl.Corrections = cl.Corrections.Add(e.Quantity)
		}
	}

	if receipt != nil {
		for _, rl := range receipt.Lines {
			if i, ok := index[rl.TransferLineID]; ok {
				rep.Lines[i].Counted = rl.ReceivedQuantity
			}
		}
	}
	for _, d := range discrepancies {
		for _, dl := range d.Lines {
			i, ok := index[dl.TransferLineID]
			if !ok {
				continue
			}
			cl := &rep.Lines[i]
			switch {
			case !dl.Dispositioned():
				cl.Outstanding = cl.Outstanding.Add(dl.QuantityDelta)
			case dl.Disposition == entity.DispositionScrap && dl.QuantityDelta.IsPositive():
				cl.Outstanding = cl.Outstanding.Add(dl.QuantityDelta)
			}
		}
	}

	for i := range rep.Lines {
		cl := &rep.Lines[i]
		cl.InTransit = cl.Dispatched.Sub(cl.Received)
		if receipt == nil {
			continue
		}
		cl.Unexplained = cl.Counted.Sub(cl.Received.Add(cl.Corrections)).Sub(cl.Outstanding)
		if !cl.InTransit.IsZero() || !cl.Unexplained.IsZero() {
			rep.Balanced = false
		}
	}
	return rep, nil
}
