package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// KeywordRepository guarda las etiquetas de interes de un usuario.
type KeywordRepository interface {
	SaveAll(ctx context.Context, userID int64, keywords []string) error
}

// PgKeywordRepository implementa KeywordRepository sobre el pool o una transaccion.
type PgKeywordRepository struct {
	db DBTX
}

func (r *PgKeywordRepository) SaveAll(ctx context.Context, userID int64, keywords []string) error {
	if len(keywords) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, kw := range keywords {
		batch.Queue(`INSERT INTO user_keyword (users_id, keyword) VALUES ($1, $2)`, userID, kw)
	}
	return r.db.SendBatch(ctx, batch).Close()
}
