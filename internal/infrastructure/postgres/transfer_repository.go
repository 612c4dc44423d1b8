package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo agregado Transfer (cabecera + líneas) sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, source_location_id, destination_location_id, destination_sub_location, status, version,
	notes, cancel_reason, created_by, approved_by, dispatched_by, delivered_by, received_by, reconciled_by, cancelled_by,
	created_at, approved_at, dispatched_at, in_transit_at, delivered_at, received_at, disputed_at, reconciled_at,
	cancelled_at, updated_at`

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var (
		t      entity.Transfer
		status string
	)
	err := row.Scan(&t.ID, &t.SourceLocationID, &t.DestinationLocationID, &t.DestinationSubLocation, &status, &t.Version,
		&t.Notes, &t.CancelReason, &t.CreatedBy, &t.ApprovedBy, &t.DispatchedBy, &t.DeliveredBy, &t.ReceivedBy,
		&t.ReconciledBy, &t.CancelledBy, &t.CreatedAt, &t.ApprovedAt, &t.DispatchedAt, &t.InTransitAt, &t.DeliveredAt,
		&t.ReceivedAt, &t.DisputedAt, &t.ReconciledAt, &t.CancelledAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	return &t, nil
}

// Create persiste cabecera y líneas; asigna IDs.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `
		INSERT INTO transfers (source_location_id, destination_location_id, destination_sub_location, status, version,
			notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		t.SourceLocationID, t.DestinationLocationID, t.DestinationSubLocation, string(t.Status), t.Version,
		t.Notes, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	lineQuery := `
		INSERT INTO transfer_lines (transfer_id, position, product_id, category_id, batch_label, expected_quantity,
			expected_weight, expiry_date, reference_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	for i := range t.Lines {
		l := &t.Lines[i]
		l.TransferID = t.ID
		if err := r.q.QueryRow(ctx, lineQuery,
			l.TransferID, l.Position, l.ProductID, l.CategoryID, l.BatchLabel, l.ExpectedQuantity,
			l.ExpectedWeight, l.ExpiryDate, l.ReferenceCost,
		).Scan(&l.ID); err != nil {
			return fmt.Errorf("insert transfer line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene un traslado con sus líneas.
func (r *TransferRepo) GetByID(ctx context.Context, id int64) (*entity.Transfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila sin esperar (FOR UPDATE NOWAIT).
func (r *TransferRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Transfer, error) {
	t, err := r.get(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE NOWAIT`, id)
	if err != nil {
		return nil, mapLockError(err, "transfer", id)
	}
	return t, nil
}

func (r *TransferRepo) get(ctx context.Context, query string, id int64) (*entity.Transfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isConcurrencyConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	lines, err := r.lines(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Lines = lines[t.ID]
	return t, nil
}

func (r *TransferRepo) lines(ctx context.Context, transferIDs []int64) (map[int64][]entity.TransferLine, error) {
	query := `
		SELECT id, transfer_id, position, product_id, category_id, batch_label, expected_quantity,
			expected_weight, expiry_date, reference_cost
		FROM transfer_lines WHERE transfer_id = ANY($1) ORDER BY transfer_id, position`
	rows, err := r.q.Query(ctx, query, transferIDs)
	if err != nil {
		return nil, fmt.Errorf("list transfer lines: %w", err)
	}
	defer rows.Close()
	out := make(map[int64][]entity.TransferLine, len(transferIDs))
	for rows.Next() {
		var l entity.TransferLine
		if err := rows.Scan(&l.ID, &l.TransferID, &l.Position, &l.ProductID, &l.CategoryID, &l.BatchLabel,
			&l.ExpectedQuantity, &l.ExpectedWeight, &l.ExpiryDate, &l.ReferenceCost); err != nil {
			return nil, fmt.Errorf("scan transfer line: %w", err)
		}
		out[l.TransferID] = append(out[l.TransferID], l)
	}
	return out, rows.Err()
}

// Update persiste estado y sellos si la versión coincide, e incrementa Version. Las líneas no cambian.
func (r *TransferRepo) Update(ctx context.Context, t *entity.Transfer) error {
	query := `
		UPDATE transfers SET status = $3, cancel_reason = $4, approved_by = $5, dispatched_by = $6, delivered_by = $7,
			received_by = $8, reconciled_by = $9, cancelled_by = $10, approved_at = $11, dispatched_at = $12,
			in_transit_at = $13, delivered_at = $14, received_at = $15, disputed_at = $16, reconciled_at = $17,
			cancelled_at = $18, updated_at = $19, version = version + 1
		WHERE id = $1 AND version = $2`
	cmd, err := r.q.Exec(ctx, query,
		t.ID, t.Version, string(t.Status), t.CancelReason, t.ApprovedBy, t.DispatchedBy, t.DeliveredBy,
		t.ReceivedBy, t.ReconciledBy, t.CancelledBy, t.ApprovedAt, t.DispatchedAt,
		t.InTransitAt, t.DeliveredAt, t.ReceivedAt, t.DisputedAt, t.ReconciledAt,
		t.CancelledAt, t.UpdatedAt,
	)
	if err != nil {
		return mapLockError(fmt.Errorf("update transfer: %w", err), "transfer", t.ID)
	}
	if cmd.RowsAffected() == 0 {
		return &domain.ConcurrentModificationError{Entity: "transfer", ID: t.ID}
	}
	t.Version++
	return nil
}

// List traslados filtrados por estado y ubicación (origen o destino), del más reciente al más antiguo.
func (r *TransferRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.Transfer, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		st := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			st[i] = string(s)
		}
		args = append(args, st)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.LocationID != 0 {
		args = append(args, f.LocationID)
		where = append(where, fmt.Sprintf("(source_location_id = $%d OR destination_location_id = $%d)", len(args), len(args)))
	}
	query := `SELECT ` + transferColumns + ` FROM transfers`
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
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	var (
		list []*entity.Transfer
		ids  []int64
	)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
		ids = append(ids, t.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	if len(ids) == 0 {
		return list, nil
	}
	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		t.Lines = lines[t.ID]
	}
	return list, nil
}

var _ repository.ShipmentRepository = (*ShipmentRepo)(nil)

// ShipmentRepo registros de despacho (solo inserción).
type ShipmentRepo struct {
	q Querier
}

// NewShipmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q}
}

// Create persiste el despacho; un segundo despacho del mismo traslado devuelve ErrDuplicate.
func (r *ShipmentRepo) Create(ctx context.Context, s *entity.Shipment) error {
	query := `
		INSERT INTO shipments (transfer_id, carrier_name, vehicle_number, driver_name, driver_phone,
			gross_weight, tare_weight, net_weight, dispatched_at, dispatched_by, attachment_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		s.TransferID, s.CarrierName, s.VehicleNumber, s.DriverName, s.DriverPhone,
		s.GrossWeight, s.TareWeight, s.NetWeight, s.DispatchedAt, s.DispatchedBy, nonNilStrings(s.AttachmentIDs), s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("shipment transfer %d: %w", s.TransferID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetByTransfer devuelve nil, nil si el traslado no se ha despachado.
func (r *ShipmentRepo) GetByTransfer(ctx context.Context, transferID int64) (*entity.Shipment, error) {
	query := `
		SELECT id, transfer_id, carrier_name, vehicle_number, driver_name, driver_phone,
			gross_weight, tare_weight, net_weight, dispatched_at, dispatched_by, attachment_ids, created_at
		FROM shipments WHERE transfer_id = $1`
	var s entity.Shipment
	err := r.q.QueryRow(ctx, query, transferID).Scan(
		&s.ID, &s.TransferID, &s.CarrierName, &s.VehicleNumber, &s.DriverName, &s.DriverPhone,
		&s.GrossWeight, &s.TareWeight, &s.NetWeight, &s.DispatchedAt, &s.DispatchedBy, &s.AttachmentIDs, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return &s, nil
}

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

// ReceiptRepo registros de recepción con sus líneas (solo inserción).
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

// Create persiste la recepción y sus líneas; una segunda recepción devuelve ErrDuplicate.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	query := `
		INSERT INTO receipts (transfer_id, received_at, received_by, gross_weight, tare_weight, net_weight,
			within_tolerance, tolerance_percent, notes, attachment_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		rc.TransferID, rc.ReceivedAt, rc.ReceivedBy, rc.GrossWeight, rc.TareWeight, rc.NetWeight,
		rc.WithinTolerance, rc.TolerancePercent, rc.Notes, nonNilStrings(rc.AttachmentIDs), rc.CreatedAt,
	).Scan(&rc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("receipt transfer %d: %w", rc.TransferID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	lineQuery := `
		INSERT INTO receipt_lines (receipt_id, transfer_line_id, product_id, expected_quantity, received_quantity,
			received_weight, variance, variance_percent, tolerance_percent, classification, defaulted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, l := range rc.Lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			rc.ID, l.TransferLineID, l.ProductID, l.ExpectedQuantity, l.ReceivedQuantity,
			l.ReceivedWeight, l.Variance, l.VariancePercent, l.TolerancePercent, string(l.Classification), l.Defaulted,
		); err != nil {
			return fmt.Errorf("insert receipt line: %w", err)
		}
	}
	return nil
}

// GetByTransfer devuelve nil, nil si el traslado no se ha recibido.
func (r *ReceiptRepo) GetByTransfer(ctx context.Context, transferID int64) (*entity.Receipt, error) {
	query := `
		SELECT id, transfer_id, received_at, received_by, gross_weight, tare_weight, net_weight,
			within_tolerance, tolerance_percent, notes, attachment_ids, created_at
		FROM receipts WHERE transfer_id = $1`
	var rc entity.Receipt
	err := r.q.QueryRow(ctx, query, transferID).Scan(
		&rc.ID, &rc.TransferID, &rc.ReceivedAt, &rc.ReceivedBy, &rc.GrossWeight, &rc.TareWeight, &rc.NetWeight,
		&rc.WithinTolerance, &rc.TolerancePercent, &rc.Notes, &rc.AttachmentIDs, &rc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT rl.transfer_line_id, rl.product_id, rl.expected_quantity, rl.received_quantity, rl.received_weight,
			rl.variance, rl.variance_percent, rl.tolerance_percent, rl.classification, rl.defaulted
		FROM receipt_lines rl JOIN transfer_lines tl ON tl.id = rl.transfer_line_id
		WHERE rl.receipt_id = $1 ORDER BY tl.position`, rc.ID)
	if err != nil {
		return nil, fmt.Errorf("list receipt lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l     entity.ReceiptLine
			class string
		)
		if err := rows.Scan(&l.TransferLineID, &l.ProductID, &l.ExpectedQuantity, &l.ReceivedQuantity, &l.ReceivedWeight,
			&l.Variance, &l.VariancePercent, &l.TolerancePercent, &class, &l.Defaulted); err != nil {
			return nil, fmt.Errorf("scan receipt line: %w", err)
		}
		l.Classification = entity.VarianceClass(class)
		rc.Lines = append(rc.Lines, l)
	}
	return &rc, rows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
