package engine

import (
	"fmt"
	"time"

	"github.com/starford/laguz/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

func marker(id, name, category string, minRef, maxRef float64) models.Marker {
	return models.Marker{ID: id, Name: name, Category: category, Unit: "u", MinRef: minRef, MaxRef: maxRef}
}

func meas(markerID string, d int, value float64) models.Measurement {
	return models.Measurement{
		ID:        fmt.Sprintf("%s-%02d", markerID, d),
		MarkerID:  markerID,
		Value:     value,
		Date:      day(d),
		CreatedAt: day(d).Add(time.Hour),
	}
}

func ptr[T any](v T) *T { return &v }
