package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.DiscrepancyRepository = (*DiscrepancyRepo)(nil)

// DiscrepancyRepo discrepancias y sus líneas sobre PostgreSQL.
type DiscrepancyRepo struct {
	q Querier
}

// NewDiscrepancyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDiscrepancyRepository(q Querier) *DiscrepancyRepo {
	return &DiscrepancyRepo{q: q}
}

const discrepancyColumns = `id, transfer_id, location_id, reason, status, severity, version, raised_by, raised_at,
	reviewed_by, review_started_at, resolved_by, resolved_at, reopened_by, reopened_at, reopen_count,
	escalation_reason, attachment_ids, created_at, updated_at`

func scanDiscrepancy(row pgx.Row) (*entity.Discrepancy, error) {
	var (
		d                        entity.Discrepancy
		reason, status, severity string
	)
	err := row.Scan(&d.ID, &d.TransferID, &d.LocationID, &reason, &status, &severity, &d.Version, &d.RaisedBy,
		&d.RaisedAt, &d.ReviewedBy, &d.ReviewStartedAt, &d.ResolvedBy, &d.ResolvedAt, &d.ReopenedBy, &d.ReopenedAt,
		&d.ReopenCount, &d.EscalationReason, &d.AttachmentIDs, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Reason = entity.ReasonCategory(reason)
	d.Status = entity.DiscrepancyStatus(status)
	d.Severity = entity.Severity(severity)
	return &d, nil
}

// Create persiste la cabecera y sus líneas. La unicidad (traslado, motivo) la garantiza el índice.
func (r *DiscrepancyRepo) Create(ctx context.Context, d *entity.Discrepancy) error {
	query := `
		INSERT INTO discrepancies (transfer_id, location_id, reason, status, severity, version, raised_by, raised_at,
			reopen_count, escalation_reason, attachment_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		d.TransferID, d.LocationID, string(d.Reason), string(d.Status), string(d.Severity), d.Version, d.RaisedBy,
		d.RaisedAt, d.ReopenCount, d.EscalationReason, nonNilStrings(d.AttachmentIDs), d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("discrepancy transfer %d reason %s: %w", d.TransferID, d.Reason, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert discrepancy: %w", err)
	}
	return r.saveLines(ctx, d)
}

// saveLines inserta las líneas nuevas (ID 0) y actualiza la disposición de las existentes.
func (r *DiscrepancyRepo) saveLines(ctx context.Context, d *entity.Discrepancy) error {
	insert := `
		INSERT INTO discrepancy_lines (discrepancy_id, transfer_line_id, product_id, expected_quantity, quantity_delta,
			weight_delta, variance_percent, disposition, notes, dispositioned_by, dispositioned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	update := `
		UPDATE discrepancy_lines SET disposition = $3, notes = $4, dispositioned_by = $5, dispositioned_at = $6
		WHERE id = $1 AND discrepancy_id = $2`
	for i := range d.Lines {
		l := &d.Lines[i]
		l.DiscrepancyID = d.ID
		if l.ID == 0 {
			if err := r.q.QueryRow(ctx, insert,
				l.DiscrepancyID, l.TransferLineID, l.ProductID, l.ExpectedQuantity, l.QuantityDelta,
				l.WeightDelta, l.VariancePercent, string(l.Disposition), l.Notes, l.DispositionedBy, l.DispositionedAt,
			).Scan(&l.ID); err != nil {
				return fmt.Errorf("insert discrepancy line: %w", err)
			}
			continue
		}
		if _, err := r.q.Exec(ctx, update,
			l.ID, l.DiscrepancyID, string(l.Disposition), l.Notes, l.DispositionedBy, l.DispositionedAt,
		); err != nil {
			return fmt.Errorf("update discrepancy line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene una discrepancia con sus líneas.
func (r *DiscrepancyRepo) GetByID(ctx context.Context, id int64) (*entity.Discrepancy, error) {
	return r.getOne(ctx, `SELECT `+discrepancyColumns+` FROM discrepancies WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila sin esperar (FOR UPDATE NOWAIT).
func (r *DiscrepancyRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Discrepancy, error) {
	d, err := r.getOne(ctx, `SELECT `+discrepancyColumns+` FROM discrepancies WHERE id = $1 FOR UPDATE NOWAIT`, id)
	if err != nil {
		return nil, mapLockError(err, "discrepancy", id)
	}
	return d, nil
}

// GetByTransferAndReason bucket de un motivo dentro del traslado.
func (r *DiscrepancyRepo) GetByTransferAndReason(ctx context.Context, transferID int64, reason entity.ReasonCategory) (*entity.Discrepancy, error) {
	return r.getOne(ctx, `SELECT `+discrepancyColumns+` FROM discrepancies WHERE transfer_id = $1 AND reason = $2`,
		transferID, string(reason))
}

func (r *DiscrepancyRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Discrepancy, error) {
	d, err := scanDiscrepancy(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isConcurrencyConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get discrepancy: %w", err)
	}
	if err := r.attachLines(ctx, []*entity.Discrepancy{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// ListByTransfer discrepancias de un traslado por ID.
func (r *DiscrepancyRepo) ListByTransfer(ctx context.Context, transferID int64) ([]*entity.Discrepancy, error) {
	return r.list(ctx, `SELECT `+discrepancyColumns+` FROM discrepancies WHERE transfer_id = $1 ORDER BY id`, transferID)
}

// ListUnresolved discrepancias abiertas; locationID 0 = todas.
func (r *DiscrepancyRepo) ListUnresolved(ctx context.Context, locationID int64) ([]*entity.Discrepancy, error) {
	query := `SELECT ` + discrepancyColumns + ` FROM discrepancies
		WHERE status <> $1 AND ($2 = 0 OR location_id = $2) ORDER BY id`
	return r.list(ctx, query, string(entity.DiscrepancyResolved), locationID)
}

func (r *DiscrepancyRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Discrepancy, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	var list []*entity.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		list = append(list, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	if err := r.attachLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *DiscrepancyRepo) attachLines(ctx context.Context, list []*entity.Discrepancy) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[int64]*entity.Discrepancy, len(list))
	ids := make([]int64, 0, len(list))
	for _, d := range list {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, discrepancy_id, transfer_line_id, product_id, expected_quantity, quantity_delta, weight_delta,
			variance_percent, disposition, notes, dispositioned_by, dispositioned_at
		FROM discrepancy_lines WHERE discrepancy_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("list discrepancy lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l    entity.DiscrepancyLine
			disp string
		)
		if err := rows.Scan(&l.ID, &l.DiscrepancyID, &l.TransferLineID, &l.ProductID, &l.ExpectedQuantity,
			&l.QuantityDelta, &l.WeightDelta, &l.VariancePercent, &disp, &l.Notes, &l.DispositionedBy,
			&l.DispositionedAt); err != nil {
			return fmt.Errorf("scan discrepancy line: %w", err)
		}
		l.Disposition = entity.Disposition(disp)
		d := byID[l.DiscrepancyID]
		d.Lines = append(d.Lines, l)
	}
	return rows.Err()
}

// Update persiste la cabecera con chequeo de versión y luego las líneas.
func (r *DiscrepancyRepo) Update(ctx context.Context, d *entity.Discrepancy) error {
	query := `
		UPDATE discrepancies SET status = $3, severity = $4, reviewed_by = $5, review_started_at = $6,
			resolved_by = $7, resolved_at = $8, reopened_by = $9, reopened_at = $10, reopen_count = $11,
			escalation_reason = $12, attachment_ids = $13, updated_at = $14, version = version + 1
		WHERE id = $1 AND version = $2`
	cmd, err := r.q.Exec(ctx, query,
		d.ID, d.Version, string(d.Status), string(d.Severity), d.ReviewedBy, d.ReviewStartedAt,
		d.ResolvedBy, d.ResolvedAt, d.ReopenedBy, d.ReopenedAt, d.ReopenCount,
		d.EscalationReason, nonNilStrings(d.AttachmentIDs), d.UpdatedAt,
	)
	if err != nil {
		return mapLockError(fmt.Errorf("update discrepancy: %w", err), "discrepancy", d.ID)
	}
	if cmd.RowsAffected() == 0 {
		return &domain.ConcurrentModificationError{Entity: "discrepancy", ID: d.ID}
	}
	d.Version++
	return r.saveLines(ctx, d)
}

// CountUnresolved discrepancias no resueltas del traslado.
func (r *DiscrepancyRepo) CountUnresolved(ctx context.Context, transferID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM discrepancies WHERE transfer_id = $1 AND status <> $2`,
		transferID, string(entity.DiscrepancyResolved),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unresolved discrepancies: %w", err)
	}
	return n, nil
}
