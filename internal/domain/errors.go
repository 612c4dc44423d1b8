package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvalidStateTransition = errors.New("transición de estado no permitida")
	ErrConcurrentModification = errors.New("modificación concurrente")
	ErrToleranceConfiguration = errors.New("no hay política de tolerancia aplicable")
)

// InvalidStateTransitionError se devuelve cuando un evento no está permitido desde el estado actual.
type InvalidStateTransitionError struct {
	Entity string // transfer | discrepancy
	ID     int64
	From   string
	Event  string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %d: evento %q no permitido desde estado %q", e.Entity, e.ID, e.Event, e.From)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// InsufficientStockError indica que el despacho dejaría negativo el stock de origen.
type InsufficientStockError struct {
	TransferID int64
	LineID     int64
	ProductID  int64
	LocationID int64
	Available  decimal.Decimal
	Required   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: producto %d en ubicación %d (disponible %s, requerido %s)",
		e.ProductID, e.LocationID, e.Available.String(), e.Required.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError describe un campo inválido. ID es la entidad afectada, si existe.
type ValidationError struct {
	Field  string
	Reason string
	ID     int64
}

func (e *ValidationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("validación: %s (%d): %s", e.Field, e.ID, e.Reason)
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para los casos de uso.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConcurrentModificationError se devuelve al perder una carrera sobre la misma entidad.
type ConcurrentModificationError struct {
	Entity string
	ID     int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %d modificado concurrentemente", e.Entity, e.ID)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }

// ToleranceConfigurationError indica que ninguna regla de tolerancia aplica a la línea.
type ToleranceConfigurationError struct {
	TransferID int64
	LineID     int64
	ProductID  int64
	LocationID int64
	CategoryID string
}

func (e *ToleranceConfigurationError) Error() string {
	return fmt.Sprintf("sin tolerancia configurada para traslado %d línea %d (producto %d, ubicación %d, categoría %q)",
		e.TransferID, e.LineID, e.ProductID, e.LocationID, e.CategoryID)
}

func (e *ToleranceConfigurationError) Unwrap() error { return ErrToleranceConfiguration }

// EntityIDs extrae los identificadores afectados de un error tipado (para respuestas accionables).
func EntityIDs(err error) []int64 {
	var (
		ist *InvalidStateTransitionError
		ins *InsufficientStockError
		val *ValidationError
		cme *ConcurrentModificationError
		tce *ToleranceConfigurationError
	)
	switch {
	case errors.As(err, &ist):
		return []int64{ist.ID}
	case errors.As(err, &ins):
		return nonZero(ins.TransferID, ins.LineID, ins.ProductID, ins.LocationID)
	case errors.As(err, &val):
		return nonZero(val.ID)
	case errors.As(err, &cme):
		return []int64{cme.ID}
	case errors.As(err, &tce):
		return nonZero(tce.TransferID, tce.LineID, tce.ProductID, tce.LocationID)
	}
	return nil
}

func nonZero(ids ...int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}
