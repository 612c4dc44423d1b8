package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance saldo materializado de un producto en una ubicación.
// Se actualiza en la misma transacción que cada asiento del libro.
type StockBalance struct {
	ProductID  int64
	LocationID int64
	Quantity   decimal.Decimal
	UpdatedAt  time.Time
}

// BalanceKey clave compuesta (producto, ubicación).
type BalanceKey struct {
	ProductID  int64
	LocationID int64
}
