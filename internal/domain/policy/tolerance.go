// Package policy resuelve la tolerancia de variación aplicable a una línea de traslado.
// Precedencia: categoría+ubicación, categoría, ubicación, valor por defecto.
package policy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Query datos de la línea que determinan la tolerancia.
type Query struct {
	LocationID int64 // ubicación destino (donde se recibe)
	CategoryID string
	ProductID  int64
}

// Rule regla de tolerancia. LocationID nil y CategoryID vacío = regla por defecto.
type Rule struct {
	ID         int64
	LocationID *int64
	CategoryID string
	Percent    decimal.Decimal
}

func (r Rule) specificity() int {
	s := 0
	if r.CategoryID != "" {
		s += 2
	}
	if r.LocationID != nil {
		s++
	}
	return s
}

func (r Rule) matches(q Query) bool {
	if r.LocationID != nil && *r.LocationID != q.LocationID {
		return false
	}
	if r.CategoryID != "" && r.CategoryID != q.CategoryID {
		return false
	}
	return true
}

// Resolve devuelve la regla más específica que aplica. Ante empate gana la primera.
func Resolve(rules []Rule, q Query) (Rule, bool) {
	var (
		best  Rule
		found bool
	)
	for _, r := range rules {
		if !r.matches(q) {
			continue
		}
		if !found || r.specificity() > best.specificity() {
			best, found = r, true
		}
	}
	return best, found
}

// StaticProvider proveedor de tolerancias configurado en memoria (variables de entorno).
type StaticProvider struct {
	rules []Rule
}

// NewStaticProvider arma las reglas. defaultPct nil = sin valor por defecto.
func NewStaticProvider(defaultPct *decimal.Decimal, byLocation map[int64]decimal.Decimal, byCategory map[string]decimal.Decimal) *StaticProvider {
	p := &StaticProvider{}
	if defaultPct != nil {
		p.rules = append(p.rules, Rule{Percent: *defaultPct})
	}
	for loc, pct := range byLocation {
		id := loc
		p.rules = append(p.rules, Rule{LocationID: &id, Percent: pct})
	}
	for cat, pct := range byCategory {
		p.rules = append(p.rules, Rule{CategoryID: cat, Percent: pct})
	}
	return p
}

// NewRulesProvider proveedor a partir de reglas ya construidas.
func NewRulesProvider(rules []Rule) *StaticProvider {
	return &StaticProvider{rules: append([]Rule(nil), rules...)}
}

// Tolerance implementa el puerto de tolerancias. found=false si ninguna regla aplica.
func (p *StaticProvider) Tolerance(_ context.Context, q Query) (decimal.Decimal, bool, error) {
	r, ok := Resolve(p.rules, q)
	if !ok {
		return decimal.Zero, false, nil
	}
	return r.Percent, true, nil
}

// ParseLocationOverrides interpreta "12:2.5,14:1" (ubicación:porcentaje).
func ParseLocationOverrides(s string) (map[int64]decimal.Decimal, error) {
	out := map[int64]decimal.Decimal{}
	err := parsePairs(s, func(k string, v decimal.Decimal) error {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("ubicación %q: %w", k, err)
		}
		out[id] = v
		return nil
	})
	return out, err
}

// ParseCategoryOverrides interpreta "frozen:1,bulk:3" (categoría:porcentaje).
func ParseCategoryOverrides(s string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	err := parsePairs(s, func(k string, v decimal.Decimal) error {
		out[k] = v
		return nil
	})
	return out, err
}

func parsePairs(s string, fn func(string, decimal.Decimal) error) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("par inválido %q", part)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("porcentaje %q: %w", v, err)
		}
		if pct.IsNegative() {
			return fmt.Errorf("porcentaje negativo en %q", part)
		}
		if err := fn(strings.TrimSpace(k), pct); err != nil {
			return err
		}
	}
	return nil
}
