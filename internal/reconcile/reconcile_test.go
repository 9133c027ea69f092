package reconcile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortreel/pkg/models"
)

func videoRequests(n int) []models.BrollRequest {
	reqs := make([]models.BrollRequest, n)
	for i := range reqs {
		reqs[i] = models.BrollRequest{
			Kind:        models.MediaKindVideo,
			SearchQuery: "city timelapse",
		}
	}
	return reqs
}

func TestReconcileTrimAndStretch(t *testing.T) {
	// 8s narration over a 6s clip and a 3s clip: the first is trimmed, the
	// second is slowed to the floor and loops for the remainder.
	plan, err := Reconcile(1, 8.0, videoRequests(2), []float64{6.0, 3.0})
	require.NoError(t, err)

	require.Len(t, plan.Placements, 3)

	assert.Equal(t, 0, plan.Placements[0].ClipIndex)
	assert.InDelta(t, 0.0, plan.Placements[0].StartOffset, 1e-9)
	assert.InDelta(t, 4.0, plan.Placements[0].PlayDuration, 1e-9)
	assert.InDelta(t, 1.0, plan.Placements[0].SpeedFactor, 1e-9)

	assert.Equal(t, 1, plan.Placements[1].ClipIndex)
	assert.InDelta(t, 3.75, plan.Placements[1].PlayDuration, 1e-9)
	assert.InDelta(t, MinSpeedFactor, plan.Placements[1].SpeedFactor, 1e-9)

	assert.Equal(t, 1, plan.Placements[2].ClipIndex)
	assert.InDelta(t, 0.25, plan.Placements[2].PlayDuration, 1e-9)
	assert.InDelta(t, 1.0, plan.Placements[2].SpeedFactor, 1e-9)

	assert.InDelta(t, 8.0, plan.TotalDuration(), 1e-9)
}

func TestReconcileEqualSplit(t *testing.T) {
	// 11s narration over three 5s clips splits evenly, all under the cap.
	plan, err := Reconcile(1, 11.0, videoRequests(3), []float64{5.0, 5.0, 5.0})
	require.NoError(t, err)

	require.Len(t, plan.Placements, 3)
	for i, p := range plan.Placements {
		assert.Equal(t, i, p.ClipIndex)
		assert.InDelta(t, 11.0/3.0, p.PlayDuration, 1e-9)
		assert.InDelta(t, 1.0, p.SpeedFactor, 1e-9)
	}
	assert.InDelta(t, 11.0, plan.TotalDuration(), 1e-9)
}

func TestReconcileCoversNarrationExactly(t *testing.T) {
	tests := []struct {
		name      string
		narration float64
		requests  []models.BrollRequest
		fetched   []float64
	}{
		{"single short clip", 4.5, videoRequests(1), []float64{10.0}},
		{"two uneven clips", 9.3, videoRequests(2), []float64{2.1, 7.0}},
		{"four clips", 16.0, videoRequests(4), []float64{5.0, 4.0, 3.0, 8.0}},
		{"tiny narration", 0.7, videoRequests(2), []float64{5.0, 5.0}},
		{"long narration one clip", 23.0, videoRequests(1), []float64{4.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Reconcile(1, tt.narration, tt.requests, tt.fetched)
			require.NoError(t, err)
			assert.InDelta(t, tt.narration, plan.TotalDuration(), 1e-6)

			for _, p := range plan.Placements {
				assert.LessOrEqual(t, p.PlayDuration, MaxClipSeconds+SumTolerance)
				assert.GreaterOrEqual(t, p.SpeedFactor, MinSpeedFactor-1e-9)
				assert.LessOrEqual(t, p.SpeedFactor, 1.0+1e-9)
				assert.GreaterOrEqual(t, p.StartOffset, 0.0)
			}
		})
	}
}

func TestReconcileSpillsIntoRepeats(t *testing.T) {
	// One 20s clip under 18s of narration: the cap forces repeat slots, each
	// trimming a fresh span of the footage.
	plan, err := Reconcile(1, 18.0, videoRequests(1), []float64{20.0})
	require.NoError(t, err)

	require.Len(t, plan.Placements, 4)

	var offset float64
	for _, p := range plan.Placements {
		assert.Equal(t, 0, p.ClipIndex)
		assert.InDelta(t, offset, p.StartOffset, 1e-9)
		assert.LessOrEqual(t, p.PlayDuration, MaxClipSeconds+1e-9)
		offset += p.PlayDuration
	}
	assert.InDelta(t, 18.0, plan.TotalDuration(), 1e-9)
}

func TestReconcileRepeatsCycleClips(t *testing.T) {
	// Two clips capped at 5s each under 14s of narration: the 4s remainder
	// spills into a repeat of the first clip.
	plan, err := Reconcile(1, 14.0, videoRequests(2), []float64{30.0, 30.0})
	require.NoError(t, err)

	require.Len(t, plan.Placements, 3)
	assert.Equal(t, 0, plan.Placements[0].ClipIndex)
	assert.Equal(t, 1, plan.Placements[1].ClipIndex)
	assert.Equal(t, 0, plan.Placements[2].ClipIndex)

	// The repeat trims footage after the span the first placement used.
	assert.InDelta(t, plan.Placements[0].PlayDuration, plan.Placements[2].StartOffset, 1e-9)
}

func TestReconcileDisplayOverride(t *testing.T) {
	requests := []models.BrollRequest{
		{Kind: models.MediaKindVideo, SearchQuery: "a", DisplayDurationSec: 6.0},
		{Kind: models.MediaKindVideo, SearchQuery: "b"},
	}

	plan, err := Reconcile(1, 10.0, requests, []float64{10.0, 10.0})
	require.NoError(t, err)

	require.Len(t, plan.Placements, 2)
	// The override weights the first clip heavier; the cap then levels both
	// at 5s.
	assert.InDelta(t, 5.0, plan.Placements[0].PlayDuration, 1e-9)
	assert.InDelta(t, 5.0, plan.Placements[1].PlayDuration, 1e-9)
}

func TestReconcileShortNarrationWarns(t *testing.T) {
	requests := []models.BrollRequest{
		{Kind: models.MediaKindVideo, SearchQuery: "a", MinDurationSec: 3.0},
		{Kind: models.MediaKindVideo, SearchQuery: "b", MinDurationSec: 3.0},
	}

	plan, err := Reconcile(1, 4.0, requests, []float64{6.0, 6.0})
	require.NoError(t, err)

	assert.NotEmpty(t, plan.Warnings)
	assert.InDelta(t, 4.0, plan.TotalDuration(), 1e-6)
}

func TestReconcileImageRendersAnyLength(t *testing.T) {
	requests := []models.BrollRequest{
		{Kind: models.MediaKindImage, SearchQuery: "chart"},
	}

	plan, err := Reconcile(1, 4.0, requests, []float64{0.0})
	require.NoError(t, err)

	require.Len(t, plan.Placements, 1)
	assert.InDelta(t, 4.0, plan.Placements[0].PlayDuration, 1e-9)
	assert.InDelta(t, 1.0, plan.Placements[0].SpeedFactor, 1e-9)
}

func TestReconcileMissingAsset(t *testing.T) {
	tests := []struct {
		name    string
		fetched []float64
	}{
		{"absent entry", []float64{6.0, Missing}},
		{"zero-length video", []float64{0.0, 6.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(3, 8.0, videoRequests(2), tt.fetched)
			require.Error(t, err)

			var missing *models.MissingAssetError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, 3, missing.SegmentID)
		})
	}
}

func TestReconcileInvalidInput(t *testing.T) {
	var cfgErr *models.ConfigError

	_, err := Reconcile(1, 8.0, nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = Reconcile(1, 0, videoRequests(1), []float64{5.0})
	require.ErrorAs(t, err, &cfgErr)

	_, err = Reconcile(1, 8.0, videoRequests(2), []float64{5.0})
	require.ErrorAs(t, err, &cfgErr)
}

func TestReconcileDeterministic(t *testing.T) {
	requests := videoRequests(3)
	fetched := []float64{4.2, 7.9, 2.6}

	first, err := Reconcile(1, 12.5, requests, fetched)
	require.NoError(t, err)
	second, err := Reconcile(1, 12.5, requests, fetched)
	require.NoError(t, err)

	assert.Equal(t, first.Placements, second.Placements)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestReconcileNoGapsNoOverlaps(t *testing.T) {
	// Placements are consumed in order by the assembler; their durations
	// must tile the narration with nothing skipped or doubled.
	plan, err := Reconcile(1, 13.0, videoRequests(3), []float64{2.0, 9.0, 4.0})
	require.NoError(t, err)

	var covered float64
	for _, p := range plan.Placements {
		assert.Greater(t, p.PlayDuration, 0.0)
		covered += p.PlayDuration
	}
	assert.False(t, math.IsNaN(covered))
	assert.InDelta(t, 13.0, covered, 1e-6)
}
