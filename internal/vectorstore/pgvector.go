package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/readiness/internal/model"
)

// PGStore keeps chunks in the chunk_embeddings table. Collections are rows
// of vector_collections so an indexed session with no chunks still exists.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Reset(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	const upsert = `
		INSERT INTO vector_collections (session_id, ctime)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET ctime = EXCLUDED.ctime
	`
	if _, err := tx.ExecContext(ctx, upsert, sessionID, time.Now().Unix()); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return tx.Commit()
}

func (s *PGStore) Upsert(ctx context.Context, sessionID string, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, sessionID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	const query = `
		INSERT INTO chunk_embeddings (session_id, chunk_id, source, chunk_index, start_offset, end_offset, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, chunk_id) DO UPDATE SET
			source = EXCLUDED.source,
			chunk_index = EXCLUDED.chunk_index,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, chunk := range chunks {
		if chunk.SessionID != sessionID {
			return fmt.Errorf("chunk %s belongs to session %s", chunk.ID, chunk.SessionID)
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID,
			chunk.ID,
			chunk.Source,
			chunk.Index,
			chunk.Start,
			chunk.End,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PGStore) Query(ctx context.Context, sessionID string, vector []float32, k int) ([]model.Evidence, error) {
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, sessionID)
	}
	if k <= 0 {
		return nil, nil
	}
	const query = `
		SELECT chunk_id, source, chunk_index, start_offset, end_offset, content, 1 - (embedding <=> $2) AS score
		FROM chunk_embeddings
		WHERE session_id = $1
		ORDER BY embedding <=> $2, chunk_id
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.Evidence, 0, k)
	for rows.Next() {
		item := model.Evidence{Chunk: model.DocumentChunk{SessionID: sessionID}}
		if err := rows.Scan(
			&item.Chunk.ID,
			&item.Chunk.Source,
			&item.Chunk.Index,
			&item.Chunk.Start,
			&item.Chunk.End,
			&item.Chunk.Text,
			&item.Score,
		); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (s *PGStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM vector_collections WHERE session_id = $1`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PGStore) Drop(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_collections WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}
