package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner = (*TxRunner)(nil)
	_ transfer.TxRunner  = (*TxRunner)(nil)
	_ financial.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción READ COMMITTED, ejecuta fn con todos los repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isConcurrencyConflict(err) {
			return mapLockError(err, "transaction", 0)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepositories construye el conjunto de repositorios sobre un Querier (pool para lecturas, tx para escrituras).
func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Transfers:     NewTransferRepository(q),
		Shipments:     NewShipmentRepository(q),
		Receipts:      NewReceiptRepository(q),
		Discrepancies: NewDiscrepancyRepository(q),
		Ledger:        NewStockLedgerRepository(q),
		Stock:         NewStockRepository(q),
		Impacts:       NewFinancialImpactRepository(q),
		Locations:     NewLocationRepository(q),
	}
}
