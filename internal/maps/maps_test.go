package maps

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"bantay/internal/types"
)

type fakeDirections struct {
	routes []maps.Route
	err    error
	got    *maps.DirectionsRequest
}

func (f *fakeDirections) Directions(_ context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error) {
	f.got = r
	return f.routes, nil, f.err
}

type fakeGeocoder struct {
	results []maps.GeocodingResult
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, _ *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, f.err
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *memCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

var (
	origin      = types.Point{Lat: 14.2117, Lng: 121.1653}
	destination = types.Point{Lat: 14.1139, Lng: 121.5556}
)

func routeWith(duration time.Duration, meters int, path []maps.LatLng) maps.Route {
	return maps.Route{
		Legs: []*maps.Leg{{
			Duration:    duration,
			Distance:    maps.Distance{Meters: meters},
			EndLocation: maps.LatLng{Lat: destination.Lat, Lng: destination.Lng},
		}},
		OverviewPolyline: maps.Polyline{Points: maps.Encode(path)},
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{754 * time.Second, "12m"},
		{59 * time.Second, "0m"},
		{0, "0m"},
		{time.Hour, "1h"},
		{time.Hour + 61*time.Second, "1h 1m"},
		{2*time.Hour + 30*time.Minute + 59*time.Second, "2h 30m"},
		{-time.Minute, "0m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestFormatDistance(t *testing.T) {
	km, s := FormatDistance(2340)
	assert.Equal(t, 2.3, km)
	assert.Equal(t, "2.3 km", s)

	km, s = FormatDistance(2350)
	assert.Equal(t, 2.4, km)
	assert.Equal(t, "2.4 km", s)

	_, s = FormatDistance(0)
	assert.Equal(t, "0.0 km", s)
}

func TestTravelTime_Success(t *testing.T) {
	path := []maps.LatLng{{Lat: origin.Lat, Lng: origin.Lng}, {Lat: 14.15, Lng: 121.3}, {Lat: destination.Lat, Lng: destination.Lng}}
	fake := &fakeDirections{routes: []maps.Route{routeWith(754*time.Second, 2340, path)}}
	svc := NewRouteService(fake, Locale{Language: "en", Region: "PH"}, zerolog.Nop(), nil)

	res := svc.TravelTime(context.Background(), origin, destination)
	require.NotNil(t, res)
	assert.Equal(t, "12m", res.DurationDisplay)
	assert.Equal(t, "2.3 km", res.DistanceDisplay)
	assert.Equal(t, 2.3, res.DistanceKm)
	require.Len(t, res.Path, 3)
	assert.InDelta(t, origin.Lng, res.Path[0].Lon(), 1e-5)
	assert.InDelta(t, origin.Lat, res.Path[0].Lat(), 1e-5)

	assert.Equal(t, maps.TravelModeDriving, fake.got.Mode)
	assert.Equal(t, origin.String(), fake.got.Origin)
	assert.Equal(t, "PH", fake.got.Region)
}

func TestTravelTime_SumsLegs(t *testing.T) {
	r := routeWith(30*time.Minute, 1000, nil)
	r.Legs = append(r.Legs, &maps.Leg{Duration: 45 * time.Minute, Distance: maps.Distance{Meters: 1500}}, nil)
	svc := NewRouteService(&fakeDirections{routes: []maps.Route{r}}, Locale{}, zerolog.Nop(), nil)

	res := svc.TravelTime(context.Background(), origin, destination)
	require.NotNil(t, res)
	assert.Equal(t, "1h 15m", res.DurationDisplay)
	assert.Equal(t, "2.5 km", res.DistanceDisplay)
	// Empty polyline falls back to leg endpoints.
	assert.GreaterOrEqual(t, len(res.Path), 2)
	assert.Equal(t, orb.Point{origin.Lng, origin.Lat}, res.Path[0])
}

func TestTravelTime_FailuresReturnNil(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeDirections
	}{
		{"transport error", &fakeDirections{err: errors.New("maps: connection reset")}},
		{"no routes", &fakeDirections{}},
		{"route without legs", &fakeDirections{routes: []maps.Route{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRouteService(tt.fake, Locale{}, zerolog.Nop(), nil)
			assert.Nil(t, svc.TravelTime(context.Background(), origin, destination))
		})
	}
}

func TestReverseGeocode(t *testing.T) {
	fake := &fakeGeocoder{results: []maps.GeocodingResult{
		{FormattedAddress: "Calamba, Laguna, Philippines"},
		{FormattedAddress: "Laguna, Philippines"},
	}}
	svc := NewGeocodeService(fake, nil, Locale{}, zerolog.Nop(), nil)
	assert.Equal(t, "Calamba, Laguna, Philippines", svc.ReverseGeocode(context.Background(), 14.2117, 121.1653))
}

func TestReverseGeocode_EmptyAndErrors(t *testing.T) {
	empty := NewGeocodeService(&fakeGeocoder{}, nil, Locale{}, zerolog.Nop(), nil)
	assert.Equal(t, "Unknown Location", empty.ReverseGeocode(context.Background(), 14.2, 121.1))

	blank := NewGeocodeService(&fakeGeocoder{results: []maps.GeocodingResult{{FormattedAddress: "  "}}}, nil, Locale{}, zerolog.Nop(), nil)
	assert.Equal(t, UnknownLocation, blank.ReverseGeocode(context.Background(), 14.2, 121.1))

	failing := NewGeocodeService(&fakeGeocoder{err: errors.New("OVER_QUERY_LIMIT")}, nil, Locale{}, zerolog.Nop(), nil)
	assert.Equal(t, UnknownLocation, failing.ReverseGeocode(context.Background(), 14.2, 121.1))

	fake := &fakeGeocoder{}
	invalid := NewGeocodeService(fake, nil, Locale{}, zerolog.Nop(), nil)
	assert.Equal(t, UnknownLocation, invalid.ReverseGeocode(context.Background(), 120, 14))
	assert.Zero(t, fake.calls.Load())
}

func TestReverseGeocode_CachesSuccessOnly(t *testing.T) {
	cache := &memCache{data: map[string]string{}}

	failing := &fakeGeocoder{err: errors.New("boom")}
	svc := NewGeocodeService(failing, cache, Locale{}, zerolog.Nop(), nil)
	svc.ReverseGeocode(context.Background(), 14.2, 121.1)
	assert.Empty(t, cache.data)

	ok := &fakeGeocoder{results: []maps.GeocodingResult{{FormattedAddress: "Calamba"}}}
	svc = NewGeocodeService(ok, cache, Locale{}, zerolog.Nop(), nil)
	assert.Equal(t, "Calamba", svc.ReverseGeocode(context.Background(), 14.2, 121.1))
	assert.Equal(t, "Calamba", svc.ReverseGeocode(context.Background(), 14.2, 121.1))
	assert.EqualValues(t, 1, ok.calls.Load())
	assert.Equal(t, "Calamba", cache.data["geocode:rev:14.20000,121.10000"])
}

func TestReverseGeocode_CoalescesConcurrentLookups(t *testing.T) {
	fake := &fakeGeocoder{
		results: []maps.GeocodingResult{{FormattedAddress: "Calamba"}},
		gate:    make(chan struct{}),
	}
	svc := NewGeocodeService(fake, nil, Locale{}, zerolog.Nop(), nil)

	var wg sync.WaitGroup
	names := make([]string, 4)
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i] = svc.ReverseGeocode(context.Background(), 14.2, 121.1)
		}(i)
	}
	// Let every goroutine reach the in-flight call before releasing it.
	require.Eventually(t, func() bool { return fake.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(fake.gate)
	wg.Wait()

	for _, n := range names {
		assert.Equal(t, "Calamba", n)
	}
	assert.LessOrEqual(t, fake.calls.Load(), int32(4))
}

func TestReverseGeocode_CancelledCallerDoesNotFailOthers(t *testing.T) {
	fake := &fakeGeocoder{
		results: []maps.GeocodingResult{{FormattedAddress: "Calamba"}},
		gate:    make(chan struct{}),
	}
	svc := NewGeocodeService(fake, nil, Locale{}, zerolog.Nop(), nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan string, 1)
	go func() { leader <- svc.ReverseGeocode(leaderCtx, 14.2, 121.1) }()
	require.Eventually(t, func() bool { return fake.calls.Load() >= 1 }, time.Second, time.Millisecond)

	follower := make(chan string, 1)
	go func() { follower <- svc.ReverseGeocode(context.Background(), 14.2, 121.1) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case name := <-leader:
		assert.Equal(t, UnknownLocation, name)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(fake.gate)
	select {
	case name := <-follower:
		assert.Equal(t, "Calamba", name)
	case <-time.After(time.Second):
		t.Fatal("waiting caller did not return")
	}
}
