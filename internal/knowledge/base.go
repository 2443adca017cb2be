// Package knowledge implements the local knowledge base: financial
// literacy documents chunked into SQLite with Gemini embeddings, searched
// by cosine similarity with a keyword fallback when no embedding engine
// is configured.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"finguard/internal/logging"
)

// Embedder turns text into vectors. Queries and documents may use
// different task types underneath.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchResult is one retrieved chunk.
type SearchResult struct {
	Content string
	Source  string
	Score   float64
}

// Base is the chunk store. The embedder may be nil, in which case search
// degrades to keyword matching.
type Base struct {
	mu       sync.RWMutex
	db       *sql.DB
	embedder Embedder
}

// NewBase creates the knowledge base tables on the shared database handle.
func NewBase(db *sql.DB, embedder Embedder) (*Base, error) {
	b := &Base{db: db, embedder: embedder}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS kb_documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS kb_chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB,
			FOREIGN KEY (document_id) REFERENCES kb_documents(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kb_chunks_doc ON kb_chunks(document_id)`,
	}
	for _, stmt := range schema {
		if _, err := b.db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create knowledge tables: %w", err)
		}
	}
	return b, nil
}

// ChunkCount reports the number of indexed chunks.
func (b *Base) ChunkCount() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var n int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM kb_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// ReplaceDocument swaps all chunks for a document path in one transaction.
// Embeddings are computed up front when an embedder is configured.
func (b *Base) ReplaceDocument(ctx context.Context, path, title string, chunks []string) error {
	var vectors [][]float32
	if b.embedder != nil && len(chunks) > 0 {
		var err error
		vectors, err = b.embedder.EmbedDocuments(ctx, chunks)
		if err != nil {
			logging.Knowledge("Embedding failed for %s, indexing without vectors: %v", path, err)
			vectors = nil
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var docID int64
	err = tx.QueryRow("SELECT id FROM kb_documents WHERE path = ?", path).Scan(&docID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec("INSERT INTO kb_documents (path, title) VALUES (?, ?)", path, title)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		docID, _ = res.LastInsertId()
	case err != nil:
		return fmt.Errorf("failed to look up document: %w", err)
	default:
		if _, err := tx.Exec("DELETE FROM kb_chunks WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("failed to clear old chunks: %w", err)
		}
		if _, err := tx.Exec("UPDATE kb_documents SET title = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?", title, docID); err != nil {
			return fmt.Errorf("failed to touch document: %w", err)
		}
	}

	for i, content := range chunks {
		var blob []byte
		if vectors != nil && i < len(vectors) {
			blob = encodeVector(vectors[i])
		}
		if _, err := tx.Exec(
			"INSERT INTO kb_chunks (document_id, seq, content, embedding) VALUES (?, ?, ?, ?)",
			docID, i, content, blob,
		); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	logging.Knowledge("Indexed %s: %d chunks", path, len(chunks))
	return nil
}

// RemoveDocument drops a document and its chunks.
func (b *Base) RemoveDocument(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var docID int64
	err := b.db.QueryRow("SELECT id FROM kb_documents WHERE path = ?", path).Scan(&docID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}
	if _, err := b.db.Exec("DELETE FROM kb_chunks WHERE document_id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := b.db.Exec("DELETE FROM kb_documents WHERE id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	logging.Knowledge("Removed %s from index", path)
	return nil
}

// Search returns the topK most relevant chunks for a query. With an
// embedder configured this is cosine similarity over chunk vectors;
// otherwise a keyword scan.
func (b *Base) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}

	if b.embedder != nil {
		results, err := b.vectorSearch(ctx, query, topK)
		if err != nil {
			logging.Knowledge("Vector search failed, falling back to keywords: %v", err)
		} else if len(results) > 0 {
			return results, nil
		}
	}
	return b.keywordSearch(query, topK)
}

func (b *Base) vectorSearch(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	qvec, err := b.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	rows, err := b.db.Query(`SELECT c.content, d.title, c.embedding
		FROM kb_chunks c JOIN kb_documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var content, title string
		var blob []byte
		if err := rows.Scan(&content, &title, &blob); err != nil {
			return nil, err
		}
		score := cosineSimilarity(qvec, decodeVector(blob))
		results = append(results, SearchResult{Content: content, Source: title, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// keywordSearch scores chunks by how many query terms they contain.
func (b *Base) keywordSearch(query string, topK int) ([]SearchResult, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	rows, err := b.db.Query(`SELECT c.content, d.title
		FROM kb_chunks c JOIN kb_documents d ON d.id = c.document_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var content, title string
		if err := rows.Scan(&content, &title); err != nil {
			return nil, err
		}
		lower := strings.ToLower(content)
		hits := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		if hits > 0 {
			results = append(results, SearchResult{
				Content: content,
				Source:  title,
				Score:   float64(hits) / float64(len(terms)),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'()")
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
