// Package lock exclusión mutua por traslado: en proceso (una instancia) o en Redis (varias instancias).
package lock

import (
	"context"
	"sync"
)

// Local candado por clave dentro del proceso. TryLock no espera.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal construye el candado en proceso.
func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

// TryLock toma la clave si está libre. release es idempotente.
func (l *Local) TryLock(_ context.Context, key string) (func(), bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
