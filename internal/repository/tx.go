package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunTx executes fn inside a single GORM transaction. Any error returned by fn
// rolls back every statement issued through tx.
func RunTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// ── Lock keys ────────────────────────────────────────────────────────────────

// OpenSessionLockKey serializes every "is a session already open" check.
const OpenSessionLockKey = "cash_session:open"

func StockLockKey(productID uuid.UUID) string  { return "stock:" + productID.String() }
func SaleLockKey(saleID uuid.UUID) string      { return "sale:" + saleID.String() }
func LedgerLockKey(sessionID uuid.UUID) string { return "cash_ledger:" + sessionID.String() }
func MemberLockKey(memberID uuid.UUID) string  { return "member:" + memberID.String() }

// AcquireLocks takes transaction-scoped advisory locks on the given keys, in a
// stable order so that two transactions locking overlapping key sets cannot
// deadlock. Locks are released on commit or rollback. On SQLite this is a
// no-op: the database allows a single writer at a time.
func AcquireLocks(tx *gorm.DB, keys ...string) error {
	if tx.Dialector.Name() != "postgres" || len(keys) == 0 {
		return nil
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	prev := ""
	for i, k := range sorted {
		if i > 0 && k == prev {
			continue
		}
		prev = k
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", k).Error; err != nil {
			return err
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// either translated by GORM or raw from pgx.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ── helpers ──────────────────────────────────────────────────────────────────

// conn returns tx when the caller is inside a transaction, the root handle otherwise.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func forUpdate(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func forShare(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: clause.LockingStrengthShare})
}
