package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func TestRecordPattern_UpsertIncrementsUsage(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.RecordPattern(ctx, &model.LearnedPattern{
		PartnerID:     "p1",
		Pattern:       " amazon rechnung ",
		SourceType:    model.SourceGmail,
		IntegrationID: "work",
		Confidence:    0.4,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.UsageCount)
	assert.Equal(t, "amazon rechnung", first.Pattern)

	second, err := store.RecordPattern(ctx, &model.LearnedPattern{
		PartnerID:     "p1",
		Pattern:       "amazon rechnung",
		SourceType:    model.SourceGmail,
		IntegrationID: "work",
		Confidence:    0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.UsageCount)
	assert.InDelta(t, 0.7, second.Confidence, 1e-9)

	third, err := store.RecordPattern(ctx, &model.LearnedPattern{
		PartnerID:     "p1",
		Pattern:       "amazon rechnung",
		SourceType:    model.SourceGmail,
		IntegrationID: "work",
		Confidence:    0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, third.UsageCount)
	assert.InDelta(t, 0.7, third.Confidence, 1e-9, "confidence never decreases")
}

func TestRecordPattern_DistinctIntegrations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, integration := range []string{"work", "home"} {
		_, err := store.RecordPattern(ctx, &model.LearnedPattern{
			PartnerID: "p1", Pattern: "acme", SourceType: model.SourceGmail, IntegrationID: integration, Confidence: 0.5,
		})
		require.NoError(t, err)
	}

	patterns, err := store.LearnedPatterns(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, patterns, 2)
}

func TestLearnedPatterns_Ordering(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	record := func(pattern string, times int, confidence float64) {
		for i := 0; i < times; i++ {
			_, err := store.RecordPattern(ctx, &model.LearnedPattern{
				PartnerID: "p1", Pattern: pattern, SourceType: model.SourceLocal, Confidence: confidence,
			})
			require.NoError(t, err)
		}
	}
	record("rarely", 1, 0.9)
	record("often", 3, 0.2)
	record("often-sure", 3, 0.8)

	_, err := store.RecordPattern(ctx, &model.LearnedPattern{
		PartnerID: "p2", Pattern: "other", SourceType: model.SourceLocal, Confidence: 1,
	})
	require.NoError(t, err)

	patterns, err := store.LearnedPatterns(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, "often-sure", patterns[0].Pattern)
	assert.Equal(t, "often", patterns[1].Pattern)
	assert.Equal(t, "rarely", patterns[2].Pattern)
	assert.False(t, patterns[0].CreatedAt.IsZero())

	all, err := store.AllLearnedPatterns(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteLearnedPattern(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	p, err := store.RecordPattern(ctx, &model.LearnedPattern{
		PartnerID: "p1", Pattern: "acme", SourceType: model.SourceGmail, Confidence: 0.5,
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteLearnedPattern(ctx, p.ID))
	assert.ErrorIs(t, store.DeleteLearnedPattern(ctx, p.ID), common.ErrNotFound)

	patterns, err := store.LearnedPatterns(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestRecordPattern_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.RecordPattern(context.Background(), &model.LearnedPattern{PartnerID: "p1", SourceType: model.SourceGmail})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
