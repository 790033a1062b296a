package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

// MaxLocalResults bounds a single local document search.
const MaxLocalResults = 100

const documentColumns = `id, filename, partner, currency, amount, date, mime_type, text`

// SaveDocument indexes a local document. A missing ID is assigned.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.LocalFile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			filename = excluded.filename,
			partner = excluded.partner,
			currency = excluded.currency,
			amount = excluded.amount,
			date = excluded.date,
			mime_type = excluded.mime_type,
			text = excluded.text
	`,
		doc.ID,
		doc.Filename,
		nullString(doc.Partner),
		nullString(strings.ToUpper(doc.Currency)),
		nullInt64(doc.Amount),
		nullTime(doc.Date.UTC()),
		nullString(doc.MimeType),
		nullString(doc.Text),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument retrieves an indexed document by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*model.LocalFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	docs, err := s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return &docs[0], nil
}

// SearchLocal finds documents whose filename, partner or text contains every
// term of the query, newest first. Provider operators such as "from:" or
// "filename:" are reduced to their value.
func (s *SQLiteStorage) SearchLocal(ctx context.Context, query string) ([]model.LocalFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: query", ErrEmptyString)
	}

	var (
		where strings.Builder
		args  []any
	)
	for i, term := range terms {
		if i > 0 {
			where.WriteString(" AND ")
		}
		where.WriteString(`(filename LIKE ? ESCAPE '\' OR partner LIKE ? ESCAPE '\' OR text LIKE ? ESCAPE '\')`)
		like := "%" + escapeLike(term) + "%"
		args = append(args, like, like, like)
	}
	args = append(args, MaxLocalResults)

	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE `+where.String()+`
		ORDER BY date IS NULL, date DESC, filename
		LIMIT ?
	`, args...)
}

// DeleteDocument removes a document from the index.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) queryDocuments(ctx context.Context, query string, args ...any) ([]model.LocalFile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.LocalFile
	for rows.Next() {
		var (
			doc                               model.LocalFile
			partner, currency, mimeType, text sql.NullString
			amount                            sql.NullInt64
			date                              sql.NullTime
		)
		if err := rows.Scan(&doc.ID, &doc.Filename, &partner, &currency, &amount, &date, &mimeType, &text); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Partner = partner.String
		doc.Currency = currency.String
		doc.MimeType = mimeType.String
		doc.Text = text.String
		doc.Date = date.Time
		if amount.Valid {
			doc.Amount = model.Cents(amount.Int64)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

func searchTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(query) {
		if i := strings.IndexByte(f, ':'); i >= 0 {
			f = f[i+1:]
		}
		f = strings.Trim(f, `"'()`)
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
