package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.FinancialImpactRepository = (*FinancialImpactRepo)(nil)

// FinancialImpactRepo impactos financieros y sus notas de recuperación.
type FinancialImpactRepo struct {
	q Querier
}

// NewFinancialImpactRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFinancialImpactRepository(q Querier) *FinancialImpactRepo {
	return &FinancialImpactRepo{q: q}
}

const impactColumns = `id, cause_kind, cause_id, location_id, category, amount, recoverable, recovered_amount,
	created_by, created_at, updated_at`

func scanImpact(row pgx.Row) (*entity.FinancialImpact, error) {
	var (
		f                   entity.FinancialImpact
		causeKind, category string
	)
	err := row.Scan(&f.ID, &causeKind, &f.Cause.ID, &f.LocationID, &category, &f.Amount, &f.Recoverable,
		&f.RecoveredAmount, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Cause.Kind = entity.CauseKind(causeKind)
	f.Category = entity.ImpactCategory(category)
	return &f, nil
}

// Create persiste el impacto (sin notas) y asigna su ID.
func (r *FinancialImpactRepo) Create(ctx context.Context, f *entity.FinancialImpact) error {
	query := `
		INSERT INTO financial_impacts (cause_kind, cause_id, location_id, category, amount, recoverable,
			recovered_amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		string(f.Cause.Kind), f.Cause.ID, f.LocationID, string(f.Category), f.Amount, f.Recoverable,
		f.RecoveredAmount, f.CreatedBy, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert financial impact: %w", err)
	}
	return nil
}

// GetByID obtiene un impacto con sus notas.
func (r *FinancialImpactRepo) GetByID(ctx context.Context, id int64) (*entity.FinancialImpact, error) {
	return r.getOne(ctx, `SELECT `+impactColumns+` FROM financial_impacts WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del impacto (las recuperaciones se serializan).
func (r *FinancialImpactRepo) GetForUpdate(ctx context.Context, id int64) (*entity.FinancialImpact, error) {
	return r.getOne(ctx, `SELECT `+impactColumns+` FROM financial_impacts WHERE id = $1 FOR UPDATE`, id)
}

func (r *FinancialImpactRepo) getOne(ctx context.Context, query string, id int64) (*entity.FinancialImpact, error) {
	f, err := scanImpact(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get financial impact: %w", err)
	}
	notes, err := r.notes(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	f.Notes = notes
	return f, nil
}

func (r *FinancialImpactRepo) notes(ctx context.Context, impactID int64) ([]entity.RecoveryNote, error) {
	rows, err := r.q.Query(ctx, `
		SELECT amount, note, recorded_by, recorded_at
		FROM financial_impact_notes WHERE impact_id = $1 ORDER BY position`, impactID)
	if err != nil {
		return nil, fmt.Errorf("list recovery notes: %w", err)
	}
	defer rows.Close()
	var out []entity.RecoveryNote
	for rows.Next() {
		var n entity.RecoveryNote
		if err := rows.Scan(&n.Amount, &n.Note, &n.RecordedBy, &n.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan recovery note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateRecovery guarda el monto recuperado e inserta las notas posteriores a las ya persistidas.
func (r *FinancialImpactRepo) UpdateRecovery(ctx context.Context, f *entity.FinancialImpact) error {
	_, err := r.q.Exec(ctx, `
		UPDATE financial_impacts SET recovered_amount = $2, updated_at = $3 WHERE id = $1`,
		f.ID, f.RecoveredAmount, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update financial impact: %w", err)
	}
	var stored int
	if err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM financial_impact_notes WHERE impact_id = $1`, f.ID,
	).Scan(&stored); err != nil {
		return fmt.Errorf("count recovery notes: %w", err)
	}
	for i := stored; i < len(f.Notes); i++ {
		n := f.Notes[i]
		if _, err := r.q.Exec(ctx, `
			INSERT INTO financial_impact_notes (impact_id, position, amount, note, recorded_by, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, i, n.Amount, n.Note, n.RecordedBy, n.RecordedAt,
		); err != nil {
			return fmt.Errorf("insert recovery note: %w", err)
		}
	}
	return nil
}

// ListByCause impactos atados a un registro causante.
func (r *FinancialImpactRepo) ListByCause(ctx context.Context, cause entity.CauseRef) ([]*entity.FinancialImpact, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+impactColumns+` FROM financial_impacts WHERE cause_kind = $1 AND cause_id = $2 ORDER BY id`,
		string(cause.Kind), cause.ID)
	if err != nil {
		return nil, fmt.Errorf("list financial impacts: %w", err)
	}
	var list []*entity.FinancialImpact
	for rows.Next() {
		f, err := scanImpact(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan financial impact: %w", err)
		}
		list = append(list, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list financial impacts: %w", err)
	}
	for _, f := range list {
		if f.Notes, err = r.notes(ctx, f.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}
