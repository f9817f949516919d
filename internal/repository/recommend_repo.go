package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"poppang-auth/internal/domain"
)

// RecommendRepository resuelve categorias del catalogo y las vincula a usuarios.
type RecommendRepository interface {
	FindAllByIDs(ctx context.Context, ids []int64) ([]domain.Recommend, error)
	Link(ctx context.Context, userID, recommendID int64) error
}

// PgRecommendRepository implementa RecommendRepository sobre el pool o una transaccion.
type PgRecommendRepository struct {
	db DBTX
}

func (r *PgRecommendRepository) FindAllByIDs(ctx context.Context, ids []int64) ([]domain.Recommend, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, recommend_name FROM recommend WHERE id = ANY($1) ORDER BY id`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return scanRecommends(rows)
}

// Link es idempotente: un vinculo repetido no falla.
func (r *PgRecommendRepository) Link(ctx context.Context, userID, recommendID int64) error {
	const query = `
		INSERT INTO user_recommend (users_id, recommend_id)
		VALUES ($1, $2)
		ON CONFLICT (users_id, recommend_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, recommendID)
	return err
}

func scanRecommends(rows pgx.Rows) ([]domain.Recommend, error) {
	defer rows.Close()
	var out []domain.Recommend
	for rows.Next() {
		var rc domain.Recommend
		if err := rows.Scan(&rc.ID, &rc.Name); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
