package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/laguz/internal/models"
)

func TestBuildHistories_DropsUntrackedAndUnknown(t *testing.T) {
	markers := []models.Marker{
		marker("a", "Alpha", "", 0, 10),
		marker("b", "Beta", "", 0, 10),
		marker("c", "Gamma", "", 0, 10),
	}
	ms := []models.Measurement{meas("c", 1, 5), meas("a", 1, 50), meas("zzz", 1, 1)}
	notes := []models.MarkerNote{{ID: "n1", MarkerID: "zzz", Body: "orphan"}}

	hs := BuildHistories(markers, ms, notes)
	require.Len(t, hs, 2)
	assert.Equal(t, "a", hs[0].Marker.ID, "catalog order is kept")
	assert.Equal(t, "c", hs[1].Marker.ID)
	assert.Equal(t, StatusHigh, hs[0].Status)
	assert.Nil(t, hs[0].Previous)
	assert.Nil(t, hs[0].Trend)
	assert.NotNil(t, hs[0].Notes)
	assert.Empty(t, hs[0].Notes)
}

func TestBuildHistories_LatestIsMaxDate(t *testing.T) {
	m := marker("a", "Alpha", "", 0, 10)
	var ms []models.Measurement
	for d := 1; d <= 20; d++ {
		ms = append(ms, meas("a", d, float64(d)))
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(ms), func(i, j int) { ms[i], ms[j] = ms[j], ms[i] })
		hs := BuildHistories([]models.Marker{m}, ms, nil)
		require.Len(t, hs, 1)
		assert.Equal(t, day(20), hs[0].Latest.Date)
		assert.Equal(t, day(19), hs[0].Previous.Date)
		assert.Equal(t, StatusHigh, hs[0].Status)
		for k := 1; k < len(hs[0].Measurements); k++ {
			assert.False(t, hs[0].Measurements[k].Date.After(hs[0].Measurements[k-1].Date))
		}
	}
}

func TestBuildHistories_SameDayUsesEntryTime(t *testing.T) {
	m := marker("a", "Alpha", "", 0, 10)
	morning := models.Measurement{ID: "x", MarkerID: "a", Value: 12, Date: day(3).Add(8 * time.Hour), CreatedAt: day(3).Add(9 * time.Hour)}
	// Later time of day, but entered earlier: time of day is ignored.
	evening := models.Measurement{ID: "y", MarkerID: "a", Value: 5, Date: day(3).Add(20 * time.Hour), CreatedAt: day(3).Add(1 * time.Hour)}

	hs := BuildHistories([]models.Marker{m}, []models.Measurement{evening, morning}, nil)
	require.Len(t, hs, 1)
	assert.Equal(t, "x", hs[0].Latest.ID)
	assert.Equal(t, StatusHigh, hs[0].Status)
}

func TestBuildHistories_NotesNewestFirst(t *testing.T) {
	m := marker("a", "Alpha", "", 0, 10)
	notes := []models.MarkerNote{
		{ID: "1", MarkerID: "a", Body: "old", CreatedAt: day(1)},
		{ID: "2", MarkerID: "a", Body: "new", CreatedAt: day(5)},
		{ID: "3", MarkerID: "a", Body: "mid", CreatedAt: day(3)},
	}
	hs := BuildHistories([]models.Marker{m}, []models.Measurement{meas("a", 1, 5)}, notes)
	require.Len(t, hs, 1)
	var bodies []string
	for _, n := range hs[0].Notes {
		bodies = append(bodies, n.Body)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, bodies)
}

func TestBuildHistories_DoesNotMutateInput(t *testing.T) {
	m := marker("a", "Alpha", "", 0, 10)
	ms := []models.Measurement{meas("a", 1, 1), meas("a", 3, 3), meas("a", 2, 2)}
	BuildHistories([]models.Marker{m}, ms, nil)
	assert.Equal(t, "a-01", ms[0].ID)
	assert.Equal(t, "a-03", ms[1].ID)
	assert.Equal(t, "a-02", ms[2].ID)
}

func TestFindHistory(t *testing.T) {
	hs := BuildHistories([]models.Marker{marker("a", "Alpha", "", 0, 10)}, []models.Measurement{meas("a", 1, 5)}, nil)
	_, ok := FindHistory(hs, "a")
	assert.True(t, ok)
	_, ok = FindHistory(hs, "b")
	assert.False(t, ok)
}
