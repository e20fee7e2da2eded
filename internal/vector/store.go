// Package vector keeps a sqlite-backed similarity index alongside the
// repository. Embeddings are derived data; the repository history stays the
// source of truth and the index can be rebuilt from it at any time.
package vector

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stratumdev/stratum/internal/embedding"
)

// Store persists entity embeddings keyed by (entity id, model).
type Store struct {
	db *sql.DB
}

// Record is a stored embedding for an entity.
type Record struct {
	EntityID   string
	EntityType string
	Model      string
	Vector     embedding.Vector
	CreatedAt  int64
}

// Match is a similarity search result, best first.
type Match struct {
	EntityID   string  `json:"entity_id"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
}

// Open opens or creates the index database at the given path.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		entity_id   TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		model       TEXT NOT NULL,
		vector      BLOB NOT NULL,
		dims        INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (entity_id, model)
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// encodeVector packs a float32 vector into a little-endian BLOB.
func encodeVector(vec embedding.Vector) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) embedding.Vector {
	n := len(buf) / 4
	vec := make(embedding.Vector, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// Save stores or replaces the embedding for an entity under the given model.
func (s *Store) Save(entityID, entityType, model string, vec embedding.Vector) error {
	blob := encodeVector(vec)
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(`
		INSERT INTO embeddings (entity_id, entity_type, model, vector, dims, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, model) DO UPDATE SET
			entity_type = excluded.entity_type,
			vector = excluded.vector,
			dims = excluded.dims,
			created_at = excluded.created_at
	`, entityID, entityType, model, blob, len(vec), now)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// Get returns the stored embedding for an entity, or nil if absent.
func (s *Store) Get(entityID, model string) (*Record, error) {
	var r Record
	var blob []byte
	err := s.db.QueryRow(`
		SELECT entity_id, entity_type, model, vector, created_at
		FROM embeddings WHERE entity_id = ? AND model = ?
	`, entityID, model).Scan(&r.EntityID, &r.EntityType, &r.Model, &blob, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	r.Vector = decodeVector(blob)
	return &r, nil
}

// Delete removes all embeddings for an entity across models.
func (s *Store) Delete(entityID string) error {
	if _, err := s.db.Exec("DELETE FROM embeddings WHERE entity_id = ?", entityID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

// Search ranks stored embeddings of the given model against the query vector
// and returns the top k matches by cosine similarity.
func (s *Store) Search(query embedding.Vector, model string, k int) ([]Match, error) {
	rows, err := s.db.Query(`
		SELECT entity_id, entity_type, vector FROM embeddings WHERE model = ?
	`, model)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id, typ string
		var blob []byte
		if err := rows.Scan(&id, &typ, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		score := embedding.CosineSimilarity(query, decodeVector(blob))
		matches = append(matches, Match{EntityID: id, EntityType: typ, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].EntityID < matches[j].EntityID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
