package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

// GetPartner retrieves a partner with its known domains.
func (s *SQLiteStorage) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	if partner := s.getCachedPartner(id); partner != nil {
		return partner, nil
	}

	partner, err := s.getPartnerTx(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	s.cachePartner(partner)
	return partner, nil
}

func (s *SQLiteStorage) getPartnerTx(ctx context.Context, q queryable, id string) (*model.Partner, error) {
	var (
		partner model.Partner
		aliases string
	)

	err := q.QueryRowContext(ctx, `
		SELECT id, name, aliases
		FROM partners
		WHERE id = ?
	`, id).Scan(&partner.ID, &partner.Name, &aliases)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("partner %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}

	if err := json.Unmarshal([]byte(aliases), &partner.Aliases); err != nil {
		return nil, fmt.Errorf("%w: partner %s aliases: %w", common.ErrDatabaseCorrupted, id, err)
	}

	domains, err := s.partnerDomainsTx(ctx, q, id)
	if err != nil {
		return nil, err
	}
	partner.Domains = domains

	return &partner, nil
}

func (s *SQLiteStorage) partnerDomainsTx(ctx context.Context, q queryable, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT domain FROM partner_domains WHERE partner_id = ? ORDER BY domain
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query partner domains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// SavePartner creates or replaces a partner and its domain list.
func (s *SQLiteStorage) SavePartner(ctx context.Context, partner *model.Partner) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePartner(partner); err != nil {
		return err
	}

	aliases := partner.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	aliasJSON, err := json.Marshal(aliases)
	if err != nil {
		return fmt.Errorf("failed to encode aliases: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO partners (id, name, aliases)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			aliases = excluded.aliases,
			updated_at = CURRENT_TIMESTAMP
	`, partner.ID, strings.TrimSpace(partner.Name), string(aliasJSON))
	if err != nil {
		return fmt.Errorf("failed to save partner: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM partner_domains WHERE partner_id = ?`, partner.ID); err != nil {
		return fmt.Errorf("failed to clear partner domains: %w", err)
	}
	for _, d := range partner.Domains {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO partner_domains (partner_id, domain) VALUES (?, ?)
		`, partner.ID, normalizeDomain(d)); err != nil {
			return fmt.Errorf("failed to save partner domain: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit partner: %w", err)
	}

	s.invalidatePartner(partner.ID)
	return nil
}

// ListPartners returns all partners ordered by name.
func (s *SQLiteStorage) ListPartners(ctx context.Context) ([]model.Partner, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM partners ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partners: %w", err)
	}

	partners := make([]model.Partner, 0, len(ids))
	for _, id := range ids {
		p, err := s.getPartnerTx(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		partners = append(partners, *p)
	}
	return partners, nil
}

// FindPartnerByDomain returns the partner owning a mail domain.
func (s *SQLiteStorage) FindPartnerByDomain(ctx context.Context, domain string) (*model.Partner, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(domain, "domain"); err != nil {
		return nil, err
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT partner_id FROM partner_domains WHERE domain = ? ORDER BY partner_id LIMIT 1
	`, normalizeDomain(domain)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain %s: %w", domain, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find partner by domain: %w", err)
	}

	return s.GetPartner(ctx, id)
}

func normalizeDomain(d string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
}

func (s *SQLiteStorage) getCachedPartner(id string) *model.Partner {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		// Double-check after acquiring write lock
		if time.Now().After(s.cacheExpiry) {
			s.partnerCache = make(map[string]*model.Partner)
		}
		return nil
	}

	partner := s.partnerCache[id]
	s.cacheMutex.RUnlock()
	if partner == nil {
		return nil
	}
	clone := *partner
	return &clone
}

func (s *SQLiteStorage) cachePartner(partner *model.Partner) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.partnerCache) == 0 {
		s.cacheExpiry = time.Now().Add(partnerCacheTTL)
	}
	clone := *partner
	s.partnerCache[partner.ID] = &clone
}

func (s *SQLiteStorage) invalidatePartner(id string) {
	s.cacheMutex.Lock()
	delete(s.partnerCache, id)
	s.cacheMutex.Unlock()
}
