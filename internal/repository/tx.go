package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX es lo que comparten *pgxpool.Pool y pgx.Tx.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repositories agrupa los repositorios que escriben dentro de la misma transaccion.
type Repositories struct {
	Users      UserRepository
	Keywords   KeywordRepository
	Recommends RecommendRepository
}

// Transactor ejecuta fn en una transaccion. Si fn devuelve error no queda nada escrito.
type Transactor interface {
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}

// PgTransactor implementa Transactor sobre pgxpool.
type PgTransactor struct {
	pool *pgxpool.Pool
}

func NewPgTransactor(pool *pgxpool.Pool) *PgTransactor {
	return &PgTransactor{pool: pool}
}

func (t *PgTransactor) InTx(ctx context.Context, fn func(repos Repositories) error) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(Repositories{
			Users:      &PgUserRepository{db: tx},
			Keywords:   &PgKeywordRepository{db: tx},
			Recommends: &PgRecommendRepository{db: tx},
		})
	})
}
