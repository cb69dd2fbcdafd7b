package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"certhub/pkg/database"
)

// Repository aggregates every repository over one connection (or one
// transaction, see WithTx).
type Repository struct {
	db *gorm.DB

	Template    TemplateRepository
	Request     ApprovalRequestRepository
	Certificate CertificateRepository
	Sequence    SequenceRepository
}

// NewRepository builds the aggregate.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		Template:    NewTemplateRepo(db),
		Request:     NewApprovalRequestRepo(db),
		Certificate: NewCertificateRepo(db),
		Sequence:    NewSequenceRepo(db),
	}
}

// WithTx returns an aggregate bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction runs fn in a transaction; fn's error rolls back.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// Ping checks the database, used by the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ── helpers ──

// IsUniqueViolation reports a unique constraint failure from either driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// forUpdate adds SELECT ... FOR UPDATE on PostgreSQL. SQLite has a single
// writer, so the clause is skipped there.
func forUpdate(db *gorm.DB) *gorm.DB {
	if database.IsPostgres(db) {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// likePattern escapes LIKE wildcards and lowercases the term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
