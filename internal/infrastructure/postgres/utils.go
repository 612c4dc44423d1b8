package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Traslados-api/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isConcurrencyConflict 55P03 lock_not_available (NOWAIT) o 40001 serialization_failure.
func isConcurrencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03" || pgErr.Code == "40001"
	}
	return false
}

// mapLockError traduce un conflicto de bloqueo en ConcurrentModificationError; otros errores pasan igual.
func mapLockError(err error, entityName string, id int64) error {
	if isConcurrencyConflict(err) {
		return &domain.ConcurrentModificationError{Entity: entityName, ID: id}
	}
	return err
}
