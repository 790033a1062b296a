package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func TestSaveAndGetPartner(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	partner := &model.Partner{
		ID:      "acme",
		Name:    "Acme GmbH",
		Aliases: []string{"ACME Handel"},
		Domains: []string{"WWW.Acme.de", "acme-billing.com", "acme.de"},
	}
	require.NoError(t, store.SavePartner(ctx, partner))

	got, err := store.GetPartner(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", got.Name)
	assert.Equal(t, []string{"ACME Handel"}, got.Aliases)
	assert.Equal(t, []string{"acme-billing.com", "acme.de"}, got.Domains)
	assert.True(t, got.HasDomain("acme.de"))
}

func TestSavePartner_ReplacesDomainsAndInvalidatesCache(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SavePartner(ctx, &model.Partner{ID: "acme", Name: "Acme", Domains: []string{"acme.de"}}))
	_, err := store.GetPartner(ctx, "acme") // warm cache
	require.NoError(t, err)

	require.NoError(t, store.SavePartner(ctx, &model.Partner{ID: "acme", Name: "Acme AG", Domains: []string{"acme.com"}}))

	got, err := store.GetPartner(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme AG", got.Name)
	assert.Equal(t, []string{"acme.com"}, got.Domains)
	assert.Empty(t, got.Aliases)
}

func TestGetPartner_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetPartner(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListPartnersAndFindByDomain(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SavePartner(ctx, &model.Partner{ID: "z", Name: "zalando", Domains: []string{"zalando.de"}}))
	require.NoError(t, store.SavePartner(ctx, &model.Partner{ID: "a", Name: "Amazon", Domains: []string{"amazon.de"}}))

	partners, err := store.ListPartners(ctx)
	require.NoError(t, err)
	require.Len(t, partners, 2)
	assert.Equal(t, "Amazon", partners[0].Name)
	assert.Equal(t, "zalando", partners[1].Name)

	found, err := store.FindPartnerByDomain(ctx, "www.Zalando.de")
	require.NoError(t, err)
	assert.Equal(t, "z", found.ID)

	_, err = store.FindPartnerByDomain(ctx, "example.org")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
