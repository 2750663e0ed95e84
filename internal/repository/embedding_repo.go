package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EmbeddingRepo struct {
	pool *pgxpool.Pool
}

func NewEmbeddingRepo(pool *pgxpool.Pool) *EmbeddingRepo {
	return &EmbeddingRepo{pool: pool}
}

func (r *EmbeddingRepo) SaveVideoEmbedding(ctx context.Context, videoID, model string, vec []float32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO video_embeddings (video_id, model, embedding, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			model = EXCLUDED.model,
			embedding = EXCLUDED.embedding,
			created_at = NOW()`,
		videoID, model, vec)
	return err
}

func (r *EmbeddingRepo) GetVideoEmbeddings(ctx context.Context, videoIDs []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(videoIDs))
	if len(videoIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		"SELECT video_id, embedding FROM video_embeddings WHERE video_id = ANY($1)", videoIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var vec []float32
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, err
		}
		out[id] = vec
	}
	return out, rows.Err()
}
