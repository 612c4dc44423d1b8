package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var (
	_ repository.TransferRepository        = (*transferRepo)(nil)
	_ repository.ShipmentRepository        = (*shipmentRepo)(nil)
	_ repository.ReceiptRepository         = (*receiptRepo)(nil)
	_ repository.DiscrepancyRepository     = (*discrepancyRepo)(nil)
	_ repository.StockLedgerRepository     = (*ledgerRepo)(nil)
	_ repository.StockRepository           = (*stockRepo)(nil)
	_ repository.FinancialImpactRepository = (*impactRepo)(nil)
	_ repository.LocationRepository        = (*locationRepo)(nil)
	_ repository.ToleranceRuleRepository   = (*ruleRepo)(nil)
)

type locationRepo struct{ with accessor }

func (r *locationRepo) Create(_ context.Context, l *entity.Location) error {
	return r.with(func(s *state) error {
		for _, other := range s.locations {
			if other.Code == l.Code {
				return domain.ErrDuplicate
			}
		}
		l.ID = s.nextID()
		s.locations[l.ID] = *l
		return nil
	})
}

func (r *locationRepo) GetByID(_ context.Context, id int64) (*entity.Location, error) {
	var out *entity.Location
	err := r.with(func(s *state) error {
		if l, ok := s.locations[id]; ok {
			out = &l
		}
		return nil
	})
	return out, err
}

func (r *locationRepo) List(_ context.Context, limit, offset int) ([]*entity.Location, error) {
	var out []*entity.Location
	err := r.with(func(s *state) error {
		ids := sortedKeys(s.locations)
		for _, id := range page(ids, limit, offset) {
			l := s.locations[id]
			out = append(out, &l)
		}
		return nil
	})
	return out, err
}

type transferRepo struct{ with accessor }

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	return r.with(func(s *state) error {
		t.ID = s.nextID()
		t.Version = 1
		for i := range t.Lines {
			t.Lines[i].ID = s.nextID()
			t.Lines[i].TransferID = t.ID
		}
		s.transfers[t.ID] = t.Clone()
		return nil
	})
}

func (r *transferRepo) GetByID(_ context.Context, id int64) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := r.with(func(s *state) error {
		if t, ok := s.transfers[id]; ok {
			c := t.Clone()
			out = &c
		}
		return nil
	})
	return out, err
}

// GetForUpdate en memoria el mutex del almacén ya serializa la transacción.
func (r *transferRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, t *entity.Transfer) error {
	return r.with(func(s *state) error {
		cur, ok := s.transfers[t.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if cur.Version != t.Version {
			return &domain.ConcurrentModificationError{Entity: "transfer", ID: t.ID}
		}
		t.Version++
		s.transfers[t.ID] = t.Clone()
		return nil
	})
}

func (r *transferRepo) List(_ context.Context, f repository.TransferFilter) ([]*entity.Transfer, error) {
	var out []*entity.Transfer
	err := r.with(func(s *state) error {
		var ids []int64
		for _, id := range sortedKeys(s.transfers) {
			t := s.transfers[id]
			if f.LocationID != 0 && t.SourceLocationID != f.LocationID && t.DestinationLocationID != f.LocationID {
				continue
			}
			if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
				continue
			}
			ids = append(ids, id)
		}
		for _, id := range page(ids, f.Limit, f.Offset) {
			c := s.transfers[id].Clone()
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

type shipmentRepo struct{ with accessor }

func (r *shipmentRepo) Create(_ context.Context, sh *entity.Shipment) error {
	return r.with(func(s *state) error {
		if _, ok := s.shipments[sh.TransferID]; ok {
			return domain.ErrDuplicate
		}
		sh.ID = s.nextID()
		c := *sh
		c.AttachmentIDs = append([]string(nil), sh.AttachmentIDs...)
		s.shipments[sh.TransferID] = c
		return nil
	})
}

func (r *shipmentRepo) GetByTransfer(_ context.Context, transferID int64) (*entity.Shipment, error) {
	var out *entity.Shipment
	err := r.with(func(s *state) error {
		if sh, ok := s.shipments[transferID]; ok {
			sh.AttachmentIDs = append([]string(nil), sh.AttachmentIDs...)
			out = &sh
		}
		return nil
	})
	return out, err
}

type receiptRepo struct{ with accessor }

func (r *receiptRepo) Create(_ context.Context, rc *entity.Receipt) error {
	return r.with(func(s *state) error {
		if _, ok := s.receipts[rc.TransferID]; ok {
			return domain.ErrDuplicate
		}
		rc.ID = s.nextID()
		s.receipts[rc.TransferID] = rc.Clone()
		return nil
	})
}

func (r *receiptRepo) GetByTransfer(_ context.Context, transferID int64) (*entity.Receipt, error) {
	var out *entity.Receipt
	err := r.with(func(s *state) error {
		if rc, ok := s.receipts[transferID]; ok {
			c := rc.Clone()
			out = &c
		}
		return nil
	})
	return out, err
}

type discrepancyRepo struct{ with accessor }

func (r *discrepancyRepo) Create(_ context.Context, d *entity.Discrepancy) error {
	return r.with(func(s *state) error {
		for _, other := range s.discrepancies {
			if other.TransferID == d.TransferID && other.Reason == d.Reason {
				return domain.ErrDuplicate
			}
		}
		d.ID = s.nextID()
		d.Version = 1
		assignLineIDs(s, d)
		s.discrepancies[d.ID] = d.Clone()
		return nil
	})
}

func assignLineIDs(s *state, d *entity.Discrepancy) {
	for i := range d.Lines {
		if d.Lines[i].ID == 0 {
			d.Lines[i].ID = s.nextID()
		}
		d.Lines[i].DiscrepancyID = d.ID
	}
}

func (r *discrepancyRepo) GetByID(_ context.Context, id int64) (*entity.Discrepancy, error) {
	var out *entity.Discrepancy
	err := r.with(func(s *state) error {
		if d, ok := s.discrepancies[id]; ok {
			c := d.Clone()
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *discrepancyRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Discrepancy, error) {
	return r.GetByID(ctx, id)
}

func (r *discrepancyRepo) GetByTransferAndReason(_ context.Context, transferID int64, reason entity.ReasonCategory) (*entity.Discrepancy, error) {
	var out *entity.Discrepancy
	err := r.with(func(s *state) error {
		for _, d := range s.discrepancies {
			if d.TransferID == transferID && d.Reason == reason {
				c := d.Clone()
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *discrepancyRepo) ListByTransfer(_ context.Context, transferID int64) ([]*entity.Discrepancy, error) {
	return r.list(func(d entity.Discrepancy) bool { return d.TransferID == transferID })
}

func (r *discrepancyRepo) ListUnresolved(_ context.Context, locationID int64) ([]*entity.Discrepancy, error) {
	return r.list(func(d entity.Discrepancy) bool {
		return !d.IsResolved() && (locationID == 0 || d.LocationID == locationID)
	})
}

func (r *discrepancyRepo) list(keep func(entity.Discrepancy) bool) ([]*entity.Discrepancy, error) {
	var out []*entity.Discrepancy
	err := r.with(func(s *state) error {
		for _, id := range sortedKeys(s.discrepancies) {
			d := s.discrepancies[id]
			if keep(d) {
				c := d.Clone()
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

func (r *discrepancyRepo) Update(_ context.Context, d *entity.Discrepancy) error {
	return r.with(func(s *state) error {
		cur, ok := s.discrepancies[d.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if cur.Version != d.Version {
			return &domain.ConcurrentModificationError{Entity: "discrepancy", ID: d.ID}
		}
		d.Version++
		assignLineIDs(s, d)
		s.discrepancies[d.ID] = d.Clone()
		return nil
	})
}

func (r *discrepancyRepo) CountUnresolved(_ context.Context, transferID int64) (int, error) {
	n := 0
	err := r.with(func(s *state) error {
		for _, d := range s.discrepancies {
			if d.TransferID == transferID && !d.IsResolved() {
				n++
			}
		}
		return nil
	})
	return n, err
}

type ledgerRepo struct{ with accessor }

func (r *ledgerRepo) Insert(_ context.Context, e *entity.StockLedgerEntry) (bool, error) {
	inserted := false
	err := r.with(func(s *state) error {
		if _, dup := s.ledgerKeys[e.IdempotencyKey]; dup {
			return nil
		}
		e.ID = s.nextID()
		s.ledgerKeys[e.IdempotencyKey] = struct{}{}
		s.ledger = append(s.ledger, *e)
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *ledgerRepo) ListByTransfer(ctx context.Context, transferID int64) ([]*entity.StockLedgerEntry, error) {
	return r.List(ctx, repository.LedgerFilter{TransferID: transferID})
}

func (r *ledgerRepo) List(_ context.Context, f repository.LedgerFilter) ([]*entity.StockLedgerEntry, error) {
	var out []*entity.StockLedgerEntry
	err := r.with(func(s *state) error {
		var matched []entity.StockLedgerEntry
		for _, e := range s.ledger {
			if matchesLedger(e, f) {
				matched = append(matched, e)
			}
		}
		for _, e := range page(matched, f.Limit, f.Offset) {
			e := e
			out = append(out, &e)
		}
		return nil
	})
	return out, err
}

func matchesLedger(e entity.StockLedgerEntry, f repository.LedgerFilter) bool {
	switch {
	case f.ProductID != 0 && e.ProductID != f.ProductID:
		return false
	case f.LocationID != 0 && e.LocationID != f.LocationID:
		return false
	case f.TransferID != 0 && (e.TransferID == nil || *e.TransferID != f.TransferID):
		return false
	case f.Kind != "" && e.Kind != f.Kind:
		return false
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && e.CreatedAt.After(*f.To):
		return false
	}
	return true
}

type stockRepo struct{ with accessor }

func (r *stockRepo) Get(_ context.Context, productID, locationID int64) (*entity.StockBalance, error) {
	var out entity.StockBalance
	err := r.with(func(s *state) error {
		b, ok := s.balances[entity.BalanceKey{ProductID: productID, LocationID: locationID}]
		if !ok {
			b = entity.StockBalance{ProductID: productID, LocationID: locationID, Quantity: decimal.Zero}
		}
		out = b
		return nil
	})
	return &out, err
}

func (r *stockRepo) GetForUpdate(ctx context.Context, productID, locationID int64) (*entity.StockBalance, error) {
	return r.Get(ctx, productID, locationID)
}

func (r *stockRepo) Upsert(_ context.Context, b *entity.StockBalance) error {
	return r.with(func(s *state) error {
		c := *b
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = time.Now()
		}
		s.balances[entity.BalanceKey{ProductID: b.ProductID, LocationID: b.LocationID}] = c
		return nil
	})
}

type impactRepo struct{ with accessor }

func (r *impactRepo) Create(_ context.Context, f *entity.FinancialImpact) error {
	return r.with(func(s *state) error {
		f.ID = s.nextID()
		s.impacts[f.ID] = f.Clone()
		return nil
	})
}

func (r *impactRepo) GetByID(_ context.Context, id int64) (*entity.FinancialImpact, error) {
	var out *entity.FinancialImpact
	err := r.with(func(s *state) error {
		if f, ok := s.impacts[id]; ok {
			c := f.Clone()
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *impactRepo) GetForUpdate(ctx context.Context, id int64) (*entity.FinancialImpact, error) {
	return r.GetByID(ctx, id)
}

func (r *impactRepo) UpdateRecovery(_ context.Context, f *entity.FinancialImpact) error {
	return r.with(func(s *state) error {
		cur, ok := s.impacts[f.ID]
		if !ok {
			return domain.ErrNotFound
		}
		cur.RecoveredAmount = f.RecoveredAmount
		cur.Notes = append([]entity.RecoveryNote(nil), f.Notes...)
		cur.UpdatedAt = f.UpdatedAt
		s.impacts[f.ID] = cur
		return nil
	})
}

func (r *impactRepo) ListByCause(_ context.Context, cause entity.CauseRef) ([]*entity.FinancialImpact, error) {
	var out []*entity.FinancialImpact
	err := r.with(func(s *state) error {
		for _, id := range sortedKeys(s.impacts) {
			f := s.impacts[id]
			if f.Cause == cause {
				c := f.Clone()
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

type ruleRepo struct{ with accessor }

func (r *ruleRepo) ListRules(_ context.Context) ([]policy.Rule, error) {
	var out []policy.Rule
	err := r.with(func(s *state) error {
		out = append(out, s.rules...)
		return nil
	})
	return out, err
}

func (r *ruleRepo) CreateRule(_ context.Context, rule *policy.Rule) error {
	if rule.Percent.IsNegative() {
		return domain.NewValidationError("percent", "no puede ser negativo")
	}
	return r.with(func(s *state) error {
		rule.ID = s.nextID()
		s.rules = append(s.rules, *rule)
		return nil
	})
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func containsStatus(list []entity.TransferStatus, st entity.TransferStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}
