// Package scan guarantees that a scanned code is consumed at most once per scope.
package scan

import (
	"context"
	"errors"
	"strings"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/metrics"
	"comexiger-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type Ledger struct {
	now func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Claim records code as used in scope. It relies on the unique index alone:
// two concurrent claims of one code cannot both succeed. db may be a
// transaction, in which case the claim lives and dies with it.
func (l *Ledger) Claim(ctx context.Context, db *gorm.DB, code string, scope models.ScanScope) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return apperr.New(apperr.KindInvalidInput, "qr_id es obligatorio")
	}

	rec := models.ScanRecord{Scope: scope, Code: code, ClaimedAt: l.now().UTC()}
	err := db.WithContext(ctx).Create(&rec).Error
	switch {
	case err == nil:
		metrics.ScanClaims.WithLabelValues(string(scope), "ok").Inc()
		return nil
	case IsUniqueViolation(err):
		metrics.ScanClaims.WithLabelValues(string(scope), "duplicate").Inc()
		return apperr.Wrap(apperr.KindDuplicateScan, duplicateMessage(scope), err)
	default:
		metrics.ScanClaims.WithLabelValues(string(scope), "error").Inc()
		return apperr.Internal("no se pudo registrar el código", err)
	}
}

// IsClaimed is a read-only lookup. Never use it as a guard before Claim.
func (l *Ledger) IsClaimed(ctx context.Context, db *gorm.DB, code string, scope models.ScanScope) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.ScanRecord{}).
		Where("scope = ? AND code = ?", scope, strings.TrimSpace(code)).
		Count(&n).Error
	return n > 0, err
}

func duplicateMessage(scope models.ScanScope) string {
	switch scope {
	case models.ScopeStockOut:
		return "Este QR ya fue registrado como salida"
	case models.ScopeProduction:
		return "Este QR ya fue escaneado"
	default:
		return "Este QR ya fue registrado"
	}
}

// IsUniqueViolation recognizes unique-constraint failures across the
// supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
