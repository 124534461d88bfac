package repositories

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const (
	searchPrecedentsSQL = `
		SELECT id, case_id, title, judgment, court, fine, year, link, content,
		       1 - (embedding <=> $1::vector) AS score
		FROM precedents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2`

	upsertPrecedentSQL = `
		INSERT INTO precedents (id, case_id, title, judgment, court, fine, year, link, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector)
		ON CONFLICT (id) DO UPDATE SET
			case_id = EXCLUDED.case_id,
			title = EXCLUDED.title,
			judgment = EXCLUDED.judgment,
			court = EXCLUDED.court,
			fine = EXCLUDED.fine,
			year = EXCLUDED.year,
			link = EXCLUDED.link,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`

	getPrecedentSQL = `
		SELECT id, case_id, title, judgment, court, fine, year, link, content
		FROM precedents WHERE id = $1`

	countPrecedentsSQL = `SELECT COUNT(*) FROM precedents`
)

// PrecedentRepository stores precedents with pgvector embeddings and answers
// cosine similarity searches. Scores are 1 - cosine distance.
type PrecedentRepository struct {
	db       DBTX
	embedder precedent.Embedder
	logger   logging.Logger
}

func NewPrecedentRepository(db DBTX, embedder precedent.Embedder, log logging.Logger) *PrecedentRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PrecedentRepository{db: db, embedder: embedder, logger: log.Named("precedent_repo")}
}

// Search embeds query and returns the k nearest precedents.
func (r *PrecedentRepository) Search(ctx context.Context, query string, k int) ([]precedent.ScoredCase, error) {
	if k <= 0 {
		k = precedent.DefaultSearchK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed search query")
	}

	rows, err := r.db.Query(ctx, searchPrecedentsSQL, vectorLiteral(vec), k)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePrecedentSearchFailed, "precedent vector search failed")
	}
	defer rows.Close()

	var out []precedent.ScoredCase
	for rows.Next() {
		var (
			doc   precedent.Document
			score float64
		)
		if err := scanDocument(rows, &doc, &score); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan precedent")
		}
		out = append(out, doc.Candidate(score))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePrecedentSearchFailed, "precedent vector search failed")
	}

	r.logger.Debug("precedent search", logging.Int("k", k), logging.Int("hits", len(out)))
	return out, nil
}

// Index upserts docs, embedding any document that arrives without a vector.
func (r *PrecedentRepository) Index(ctx context.Context, docs []precedent.Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range docs {
		doc := docs[i]
		if doc.ID == "" {
			doc.ID = doc.Metadata.CaseID
		}
		if doc.ID == "" {
			return errors.New(errors.ErrCodeValidation, "precedent document has no id").
				WithDetail("index " + strconv.Itoa(i))
		}
		if len(doc.Embedding) == 0 {
			vec, err := r.embedder.Embed(ctx, doc.Content)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed precedent").WithDetail(doc.ID)
			}
			doc.Embedding = vec
		}
		m := doc.Metadata
		batch.Queue(upsertPrecedentSQL,
			doc.ID, m.CaseID, m.Title, m.JudgmentText, m.Court, m.Fine, m.Year, m.Link,
			doc.Content, vectorLiteral(doc.Embedding),
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range docs {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, errors.ErrCodePrecedentIndexFailed, "failed to upsert precedent")
		}
	}

	r.logger.Info("indexed precedents", logging.Int("count", len(docs)))
	return nil
}

// Get loads one precedent by id.
func (r *PrecedentRepository) Get(ctx context.Context, id string) (*precedent.Document, error) {
	row := r.db.QueryRow(ctx, getPrecedentSQL, id)
	var doc precedent.Document
	if err := scanDocument(row, &doc, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodePrecedentNotFound, "precedent not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load precedent")
	}
	return &doc, nil
}

func (r *PrecedentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, countPrecedentsSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count precedents")
	}
	return n, nil
}

func scanDocument(row pgx.Row, doc *precedent.Document, score *float64) error {
	m := &doc.Metadata
	dest := []any{&doc.ID, &m.CaseID, &m.Title, &m.JudgmentText, &m.Court, &m.Fine, &m.Year, &m.Link, &doc.Content}
	if score != nil {
		dest = append(dest, score)
	}
	return row.Scan(dest...)
}

// vectorLiteral renders v in pgvector's text form, e.g. [0.1,0.2].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
