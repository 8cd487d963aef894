package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultMaxDepth ограничивает глубину иерархии и обход подчинённых
	DefaultMaxDepth = 10
	// DefaultTxRetries - число повторов транзакции при конфликте сериализации
	DefaultTxRetries = 3
)

// Store объединяет репозитории и даёт атомарное выполнение группы операций
type Store interface {
	Employees() EmployeeRepository
	Departments() DepartmentRepository
	MaxDepth() int
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

// Option настраивает Store
type Option func(*gormStore)

// WithMaxDepth задаёт предел глубины обхода иерархии
func WithMaxDepth(depth int) Option {
	return func(s *gormStore) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithTxRetries задаёт число повторов транзакции
func WithTxRetries(retries uint64) Option {
	return func(s *gormStore) {
		s.txRetries = retries
	}
}

type gormStore struct {
	db        *gorm.DB
	maxDepth  int
	txRetries uint64
	inTx      bool
}

// NewStore создаёт хранилище поверх gorm
func NewStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{
		db:        db,
		maxDepth:  DefaultMaxDepth,
		txRetries: DefaultTxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) Employees() EmployeeRepository {
	return NewEmployeeRepository(s.db, s.maxDepth)
}

func (s *gormStore) Departments() DepartmentRepository {
	return NewDepartmentRepository(s.db)
}

// MaxDepth - наибольшая допустимая глубина пути от CEO
func (s *gormStore) MaxDepth() int {
	return s.maxDepth
}

// WithTransaction выполняет fn в одной транзакции. Любая ошибка fn
// откатывает все изменения. Конфликты сериализации и взаимные
// блокировки PostgreSQL повторяются с экспоненциальной задержкой.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	op := func() error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormStore{db: tx, maxDepth: s.maxDepth, inTx: true})
		})
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, s.txRetries), ctx))
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// forUpdate блокирует выбранные строки до конца транзакции.
// Диалект SQLite опускает это выражение.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
