package knowledge

import (
	"context"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PostgresTable pgvector条目表，结构见 migrations/
const PostgresTable = "knowledge_entries"

// PostgresVectorStore 基于PostgreSQL + pgvector的向量存储
type PostgresVectorStore struct {
	db        *gorm.DB
	dimension int
}

// NewPostgresVectorStore 创建pgvector向量存储
func NewPostgresVectorStore(db *gorm.DB, dimension int) *PostgresVectorStore {
	return &PostgresVectorStore{db: db, dimension: dimension}
}

const (
	pgUpsertSQL = `INSERT INTO knowledge_entries (id, embedding, metadata, source, created_at)
VALUES (?, ?, ?, ?, NOW())
ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata, source = EXCLUDED.source`
	pgQuerySQL = `SELECT id, metadata, 1 - (embedding <=> ?) AS score FROM knowledge_entries ORDER BY embedding <=> ? LIMIT ?`
	pgStatsSQL = `SELECT COUNT(*) AS total, COALESCE(MAX(vector_dims(embedding)), 0) AS dimension FROM knowledge_entries`
)

func (s *PostgresVectorStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.dimension); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return err
			}
			if err := tx.Exec(pgUpsertSQL, e.ID, pgvector.NewVector(e.Vector), string(raw), e.Metadata.String(MetaSource)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return indexError("upsert", err)
}

func (s *PostgresVectorStore) DeleteOne(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Exec("DELETE FROM knowledge_entries WHERE id = ?", id).Error
	return indexError("delete", err)
}

func (s *PostgresVectorStore) DeleteAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Exec("DELETE FROM knowledge_entries").Error
	return indexError("delete all", err)
}

type pgMatchRow struct {
	ID       string
	Metadata string
	Score    float64
}

func (s *PostgresVectorStore) Query(ctx context.Context, req QueryRequest) ([]SearchMatch, error) {
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	vec := pgvector.NewVector(req.Vector)
	var rows []pgMatchRow
	if err := s.db.WithContext(ctx).Raw(pgQuerySQL, vec, vec, req.TopK).Scan(&rows).Error; err != nil {
		return nil, indexError("query", err)
	}

	matches := make([]SearchMatch, 0, len(rows))
	for _, row := range rows {
		m := SearchMatch{ID: row.ID, Score: row.Score}
		if req.IncludeMetadata && row.Metadata != "" {
			var meta Metadata
			if err := json.Unmarshal([]byte(row.Metadata), &meta); err == nil {
				m.Metadata = meta
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

type pgStatsRow struct {
	Total     int64
	Dimension int
}

func (s *PostgresVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	var row pgStatsRow
	if err := s.db.WithContext(ctx).Raw(pgStatsSQL).Scan(&row).Error; err != nil {
		return IndexStats{}, indexError("stats", err)
	}
	dim := row.Dimension
	if dim == 0 {
		dim = s.dimension
	}
	return IndexStats{TotalVectors: row.Total, Dimension: dim}, nil
}

func (s *PostgresVectorStore) Ready() bool {
	return s.db != nil
}
