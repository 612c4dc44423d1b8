// Package memory implementa todos los puertos de persistencia en memoria. Cada Run trabaja sobre
// una copia del estado que sólo reemplaza al original si fn termina sin error, de modo que un fallo
// no deja escrituras parciales. Se usa en pruebas y con STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

type state struct {
	seq           int64
	locations     map[int64]entity.Location
	transfers     map[int64]entity.Transfer
	shipments     map[int64]entity.Shipment // por transfer_id
	receipts      map[int64]entity.Receipt  // por transfer_id
	discrepancies map[int64]entity.Discrepancy
	ledger        []entity.StockLedgerEntry
	ledgerKeys    map[string]struct{}
	balances      map[entity.BalanceKey]entity.StockBalance
	impacts       map[int64]entity.FinancialImpact
	rules         []policy.Rule
}

func newState() *state {
	return &state{
		locations:     map[int64]entity.Location{},
		transfers:     map[int64]entity.Transfer{},
		shipments:     map[int64]entity.Shipment{},
		receipts:      map[int64]entity.Receipt{},
		discrepancies: map[int64]entity.Discrepancy{},
		ledgerKeys:    map[string]struct{}{},
		balances:      map[entity.BalanceKey]entity.StockBalance{},
		impacts:       map[int64]entity.FinancialImpact{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	out := newState()
	out.seq = s.seq
	for k, v := range s.locations {
		out.locations[k] = v
	}
	for k, v := range s.transfers {
		out.transfers[k] = v.Clone()
	}
	for k, v := range s.shipments {
		v.AttachmentIDs = append([]string(nil), v.AttachmentIDs...)
		out.shipments[k] = v
	}
	for k, v := range s.receipts {
		out.receipts[k] = v.Clone()
	}
	for k, v := range s.discrepancies {
		out.discrepancies[k] = v.Clone()
	}
	out.ledger = append([]entity.StockLedgerEntry(nil), s.ledger...)
	for k := range s.ledgerKeys {
		out.ledgerKeys[k] = struct{}{}
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.impacts {
		out.impacts[k] = v.Clone()
	}
	out.rules = append([]policy.Rule(nil), s.rules...)
	return out
}

// Store almacén en memoria. El mutex se mantiene durante toda la transacción.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// accessor ejecuta f contra un estado concreto (el de la transacción o el compartido).
type accessor func(f func(*state) error) error

func (s *Store) shared(f func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.st)
}

// Run ejecuta fn sobre una copia del estado; si fn no falla la copia pasa a ser el estado vigente.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	in := func(f func(*state) error) error { return f(work) }
	if err := fn(repositories(in)); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Repositories devuelve repositorios fuera de transacción (cada llamada toma el mutex).
func (s *Store) Repositories() repository.Repositories {
	return repositories(s.shared)
}

// ToleranceRules repositorio de reglas de tolerancia.
func (s *Store) ToleranceRules() repository.ToleranceRuleRepository {
	return &ruleRepo{with: s.shared}
}

func repositories(with accessor) repository.Repositories {
	return repository.Repositories{
		Transfers:     &transferRepo{with: with},
		Shipments:     &shipmentRepo{with: with},
		Receipts:      &receiptRepo{with: with},
		Discrepancies: &discrepancyRepo{with: with},
		Ledger:        &ledgerRepo{with: with},
		Stock:         &stockRepo{with: with},
		Impacts:       &impactRepo{with: with},
		Locations:     &locationRepo{with: with},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
