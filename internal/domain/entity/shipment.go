package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment registro físico del despacho (vehículo, pesaje). Uno por traslado, inmutable.
type Shipment struct {
	ID            int64
	TransferID    int64
	CarrierName   string
	VehicleNumber string
	DriverName    string
	DriverPhone   string
	GrossWeight   *decimal.Decimal
	TareWeight    *decimal.Decimal
	NetWeight     *decimal.Decimal
	DispatchedAt  time.Time
	DispatchedBy  string
	AttachmentIDs []string // referencias opacas al almacén de documentos
	CreatedAt     time.Time
}

// Weights pesaje bruto/tara/neto capturado en báscula.
type Weights struct {
	Gross *decimal.Decimal
	Tare  *decimal.Decimal
	Net   *decimal.Decimal
}

// Normalize valida el pesaje y completa el neto (bruto - tara) si falta.
// Devuelve el nombre del campo inválido, o "" si es válido.
func (w Weights) Normalize() (Weights, string) {
	fields := []struct {
		name string
		v    *decimal.Decimal
	}{{"gross_weight", w.Gross}, {"tare_weight", w.Tare}, {"net_weight", w.Net}}
	for _, f := range fields {
		if f.v != nil && f.v.IsNegative() {
			return w, f.name
		}
	}
	if w.Gross != nil && w.Tare != nil {
		if w.Tare.GreaterThan(*w.Gross) {
			return w, "tare_weight"
		}
		net := w.Gross.Sub(*w.Tare)
		if w.Net == nil {
			w.Net = &net
		} else if !w.Net.Equal(net) {
			return w, "net_weight"
		}
	}
	return w, ""
}
