package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbancanopy/canopy-cli/internal/pipeline"
	"github.com/urbancanopy/canopy-cli/internal/spots"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "canopy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleAnalysis(runID string, created time.Time) *pipeline.Analysis {
	return &pipeline.Analysis{
		RunID:     runID,
		Location:  pipeline.Location{Name: "Aster Hill", Lat: 3.139, Lon: 101.6869},
		CreatedAt: created,
		Spots: []spots.Spot{
			{ID: 1, Lat: 3.1391, Lon: 101.6870, MeanScore: 88.5, AreaM2: 120.4, SizePx: 334},
			{ID: 2, Lat: 3.1388, Lon: 101.6865, MeanScore: 83.1, AreaM2: 45.0, SizePx: 125},
		},
	}
}

func sampleSummary(a *pipeline.Analysis) *pipeline.Summary {
	s := &pipeline.Summary{}
	s.Location.Name = a.Location.Name
	s.Metadata.RunID = a.RunID
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := sampleAnalysis("run-1", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, a, sampleSummary(a)))

	r, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "run-1", r.ID)
	assert.Equal(t, "aster_hill", r.Location)
	require.NotNil(t, r.Summary)
	assert.Equal(t, "Aster Hill", r.Summary.Location.Name)
}

func TestGetRun_Missing(t *testing.T) {
	s := openStore(t)
	r, err := s.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestLatestRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	older := sampleAnalysis("run-old", time.Now().UTC().Add(-time.Hour))
	newer := sampleAnalysis("run-new", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, older, sampleSummary(older)))
	require.NoError(t, s.SaveRun(ctx, newer, sampleSummary(newer)))

	r, err := s.LatestRun(ctx, "aster_hill")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "run-new", r.ID)

	none, err := s.LatestRun(ctx, "elsewhere")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := sampleAnalysis("run-1", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, a, sampleSummary(a)))

	runs, err := s.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	// Listings omit the summary payload.
	assert.Nil(t, runs[0].Summary)

	filtered, err := s.ListRuns(ctx, "elsewhere", 10)
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestSpotsForRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := sampleAnalysis("run-1", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, a, sampleSummary(a)))

	got, err := s.SpotsForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.InDelta(t, 88.5, got[0].MeanScore, 1e-9)
	assert.Equal(t, 334, got[0].SizePx)
}

func TestSaveRun_DuplicateID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := sampleAnalysis("run-1", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, a, sampleSummary(a)))
	assert.Error(t, s.SaveRun(ctx, a, sampleSummary(a)))
}
