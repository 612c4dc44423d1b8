package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.StockLedgerRepository = (*StockLedgerRepo)(nil)

// StockLedgerRepo libro de stock sobre PostgreSQL; solo inserciones.
type StockLedgerRepo struct {
	q Querier
}

// NewStockLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLedgerRepository(q Querier) *StockLedgerRepo {
	return &StockLedgerRepo{q: q}
}

const ledgerColumns = `id, product_id, location_id, quantity, kind, reference_kind, reference_id,
	transfer_id, transfer_line_id, idempotency_key, notes, created_by, created_at`

// Insert persiste el asiento. ON CONFLICT sobre la clave de idempotencia: sin fila devuelta = ya existía.
func (r *StockLedgerRepo) Insert(ctx context.Context, e *entity.StockLedgerEntry) (bool, error) {
	query := `
		INSERT INTO stock_ledger_entries (product_id, location_id, quantity, kind, reference_kind, reference_id,
			transfer_id, transfer_line_id, idempotency_key, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		e.ProductID, e.LocationID, e.Quantity, string(e.Kind), string(e.Reference.Kind), e.Reference.ID,
		e.TransferID, e.TransferLineID, e.IdempotencyKey, e.Notes, e.CreatedBy, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return true, nil
}

// ListByTransfer asientos de un traslado en orden de inserción.
func (r *StockLedgerRepo) ListByTransfer(ctx context.Context, transferID int64) ([]*entity.StockLedgerEntry, error) {
	return r.List(ctx, repository.LedgerFilter{TransferID: transferID})
}

// List asientos filtrados, ordenados por ID.
func (r *StockLedgerRepo) List(ctx context.Context, f repository.LedgerFilter) ([]*entity.StockLedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != 0 {
		add("product_id = $%d", f.ProductID)
	}
	if f.LocationID != 0 {
		add("location_id = $%d", f.LocationID)
	}
	if f.TransferID != 0 {
		add("transfer_id = $%d", f.TransferID)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLedgerEntry
	for rows.Next() {
		var (
			e       entity.StockLedgerEntry
			kind    string
			refKind string
		)
		if err := rows.Scan(&e.ID, &e.ProductID, &e.LocationID, &e.Quantity, &kind, &refKind, &e.Reference.ID,
			&e.TransferID, &e.TransferLineID, &e.IdempotencyKey, &e.Notes, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = entity.MovementKind(kind)
		e.Reference.Kind = entity.ReferenceKind(refKind)
		list = append(list, &e)
	}
	return list, rows.Err()
}
