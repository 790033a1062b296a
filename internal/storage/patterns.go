package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

const patternColumns = `id, partner_id, pattern, source_type, integration_id, usage_count, confidence, created_at, updated_at`

// LearnedPatterns returns the patterns recorded for a partner, most used first.
func (s *SQLiteStorage) LearnedPatterns(ctx context.Context, partnerID string) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(partnerID, "partnerID"); err != nil {
		return nil, err
	}

	return s.queryPatterns(ctx, s.db, `
		SELECT `+patternColumns+`
		FROM learned_patterns
		WHERE partner_id = ?
		ORDER BY usage_count DESC, confidence DESC, id ASC
	`, partnerID)
}

// AllLearnedPatterns returns every learned pattern grouped by partner.
func (s *SQLiteStorage) AllLearnedPatterns(ctx context.Context) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryPatterns(ctx, s.db, `
		SELECT `+patternColumns+`
		FROM learned_patterns
		ORDER BY partner_id, usage_count DESC, confidence DESC, id ASC
	`)
}

// RecordPattern stores a pattern after the user connected a document with it.
// Recording an existing (partner, pattern, source, integration) tuple again
// increments its usage count and keeps the higher confidence.
func (s *SQLiteStorage) RecordPattern(ctx context.Context, pattern *model.LearnedPattern) (*model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(pattern.Pattern)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO learned_patterns (partner_id, pattern, source_type, integration_id, usage_count, confidence)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (partner_id, pattern, source_type, integration_id) DO UPDATE SET
			usage_count = usage_count + 1,
			confidence = MAX(confidence, excluded.confidence),
			updated_at = CURRENT_TIMESTAMP
	`, pattern.PartnerID, text, string(pattern.SourceType), pattern.IntegrationID, pattern.Confidence)
	if err != nil {
		return nil, fmt.Errorf("failed to record pattern: %w", err)
	}

	stored, err := s.queryPatterns(ctx, tx, `
		SELECT `+patternColumns+`
		FROM learned_patterns
		WHERE partner_id = ? AND pattern = ? AND source_type = ? AND integration_id = ?
	`, pattern.PartnerID, text, string(pattern.SourceType), pattern.IntegrationID)
	if err != nil {
		return nil, err
	}
	if len(stored) != 1 {
		return nil, fmt.Errorf("failed to read back recorded pattern: %w", common.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pattern: %w", err)
	}

	return &stored[0], nil
}

// DeleteLearnedPattern removes a learned pattern by id.
func (s *SQLiteStorage) DeleteLearnedPattern(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM learned_patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("learned pattern %d: %w", id, common.ErrNotFound)
	}

	return nil
}

func (s *SQLiteStorage) queryPatterns(ctx context.Context, q queryable, query string, args ...any) ([]model.LearnedPattern, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.LearnedPattern
	for rows.Next() {
		var (
			p          model.LearnedPattern
			sourceType string
			createdAt  sql.NullTime
			updatedAt  sql.NullTime
		)
		if err := rows.Scan(
			&p.ID,
			&p.PartnerID,
			&p.Pattern,
			&sourceType,
			&p.IntegrationID,
			&p.UsageCount,
			&p.Confidence,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.SourceType = model.SourceType(sourceType)
		p.CreatedAt = createdAt.Time
		p.UpdatedAt = updatedAt.Time
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}
