package geolocation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantay/internal/types"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.True(t, o.HighAccuracy)
	assert.Equal(t, 10*time.Second, o.Timeout)
	assert.Equal(t, 5*time.Minute, o.MaximumAge)
}

func TestCurrentPosition_WaitsForReport(t *testing.T) {
	r := NewReported()
	done := make(chan Position, 1)
	go func() {
		p, err := r.CurrentPosition(context.Background(), DefaultOptions())
		assert.NoError(t, err)
		done <- p
	}()

	require.Eventually(t, func() bool {
		_, ok := r.Requested()
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, r.Report(Position{Point: types.Point{Lat: 14.2, Lng: 121.1}, Accuracy: 12}))
	p := <-done
	assert.Equal(t, 14.2, p.Point.Lat)
	_, ok := r.Requested()
	assert.False(t, ok)
}

func TestCurrentPosition_UsesCachedFix(t *testing.T) {
	r := NewReported()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	require.NoError(t, r.Report(Position{Point: types.Point{Lat: 14, Lng: 121}}))

	now = now.Add(4 * time.Minute)
	p, err := r.CurrentPosition(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 14.0, p.Point.Lat)

	now = now.Add(2 * time.Minute)
	_, err = r.CurrentPosition(context.Background(), Options{Timeout: 10 * time.Millisecond, MaximumAge: 5 * time.Minute})
	assert.ErrorIs(t, err, ErrTimeout)
	_, ok := r.Requested()
	assert.False(t, ok)
}

func TestReportValidation(t *testing.T) {
	r := NewReported()
	assert.Error(t, r.Report(Position{Point: types.Point{Lat: 95, Lng: 0}}))
}

func TestReportError(t *testing.T) {
	r := NewReported()
	errc := make(chan error, 1)
	go func() {
		_, err := r.CurrentPosition(context.Background(), DefaultOptions())
		errc <- err
	}()
	require.Eventually(t, func() bool {
		_, ok := r.Requested()
		return ok
	}, time.Second, time.Millisecond)

	r.ReportError("permission denied")
	assert.ErrorIs(t, <-errc, ErrUnavailable)
}

func TestLocate(t *testing.T) {
	r := NewReported()
	assert.Nil(t, Locate(context.Background(), r, Options{Timeout: 5 * time.Millisecond}, zerolog.Nop()))

	require.NoError(t, r.Report(Position{Point: types.Point{Lat: 14, Lng: 121}}))
	p := Locate(context.Background(), r, DefaultOptions(), zerolog.Nop())
	require.NotNil(t, p)
	assert.Equal(t, 121.0, p.Lng)
}
