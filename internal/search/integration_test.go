package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/search"
	"github.com/Veraticus/paper-trail/internal/testutil"
)

func TestSearchAndConnect_SQLite(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.Seed{
		Partners:  []model.Partner{testutil.AcmePartner()},
		Documents: []model.LocalFile{testutil.UnrelatedDocument(), testutil.AcmeInvoice()},
	})
	invoice := db.Documents[1]

	svc := search.NewService(search.Deps{
		Local:    db.Storage,
		Patterns: db.Storage,
		Partners: db.Storage,
	}, search.Config{})

	ctx := context.Background()
	anchor := testutil.AcmeTransaction()

	result, err := svc.Search(ctx, search.Request{Anchor: anchor})
	require.NoError(t, err)
	require.NotNil(t, result.Partner)
	assert.Equal(t, "acme", result.Partner.ID)
	assert.Equal(t, model.QuerySimple, result.Query.Source)
	assert.Equal(t, "ACME", result.Query.Query)

	require.Len(t, result.Ranked, 2)
	assert.Equal(t, invoice.ID, result.Ranked[0].Candidate.Key())
	assert.Greater(t, result.Ranked[0].Result.Score, result.Ranked[1].Result.Score)

	require.Len(t, result.Accounts, 1)
	assert.Equal(t, search.StatusOK, result.Accounts[0].Status)
	assert.Equal(t, 2, result.Accounts[0].Results)

	pattern, err := svc.Connect(ctx, search.ConnectRequest{
		Anchor:    anchor,
		Candidate: result.Ranked[0].Candidate,
		Query:     result.Query.Query,
		Score:     result.Ranked[0].Result.Score,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SourceLocal, pattern.SourceType)
	assert.Equal(t, 1, pattern.UsageCount)

	again, err := svc.Search(ctx, search.Request{Anchor: anchor})
	require.NoError(t, err)
	assert.Equal(t, model.QueryLearned, again.Query.Source)
	assert.Equal(t, "ACME", again.Query.Query)

	stored, err := db.Storage.LearnedPatterns(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, pattern.ID, stored[0].ID)
}
