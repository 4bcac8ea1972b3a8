// README: Entry point; loads config, wires services, starts the HTTP server and shuts it down on signal.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"bantay/internal/annotation"
	"bantay/internal/config"
	"bantay/internal/geolocation"
	httptransport "bantay/internal/http"
	"bantay/internal/http/handlers"
	"bantay/internal/infra"
	"bantay/internal/mapengine"
	"bantay/internal/maps"
	"bantay/internal/metrics"
	"bantay/internal/modules/audit"
	"bantay/internal/modules/mapview"
	"bantay/internal/modules/pin"
)

func main() {
	configDir := flag.String("config", ".", "directory holding bantay.json")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := infra.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal().Msg("BANTAY_FIREBASE_PROJECTID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase init")
	}
	fs, err := infra.NewFirestore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("firestore init")
	}
	defer fs.Close()
	pins := pin.NewService(pin.NewStore(fs), log)

	m := metrics.New()

	var auditor mapview.Auditor
	if cfg.DB.Enabled {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres init")
		}
		defer dbPool.Close()
		auditor = audit.NewService(audit.NewStore(dbPool), log)
	}

	var cache maps.Cache
	if cfg.Redis.Enabled {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, geocode cache disabled")
		} else {
			defer redisClient.Close()
			cache = maps.NewRedisCache(redisClient, cfg.Geocode.CacheTTL, log)
		}
	}

	// Routing and geocoding stay nil without an API key; the map still
	// renders, travel times are simply unavailable.
	var (
		router   annotation.Router
		geocoder annotation.Geocoder
		places   handlers.PlaceSearcher
	)
	if cfg.Maps.APIKey == "" {
		log.Warn().Msg("BANTAY_MAPS_APIKEY not set, routing and geocoding disabled")
	} else {
		client, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("maps init")
		}
		locale := maps.Locale{Language: cfg.Maps.Language, Region: cfg.Maps.Region}
		router = maps.NewRouteService(client, locale, log, m)
		geocoder = maps.NewGeocodeService(client, cache, locale, log, m)
		places = maps.NewPlacesService(client, locale, log)
	}

	views := mapview.NewManager(mapview.Config{
		DefaultStyle: cfg.Map.DefaultStyle,
		Width:        cfg.Map.Width,
		Height:       cfg.Map.Height,
		Center:       orb.Point{cfg.Map.CenterLng, cfg.Map.CenterLat},
		Zoom:         cfg.Map.Zoom,
		LoadTimeout:  cfg.Map.LoadTimeout,
		RouteColor:   cfg.Map.RouteColor,
		Padding:      cfg.Map.Padding,
		JitterKm:     cfg.Map.JitterMeters / 1000,
		Geolocation: geolocation.Options{
			HighAccuracy: cfg.Geolocation.HighAccuracy,
			Timeout:      cfg.Geolocation.Timeout,
			MaximumAge:   cfg.Geolocation.MaximumAge,
		},
	}, mapview.Deps{
		Loader:   mapengine.NewHTTPStyleLoader(cfg.Map.LoadTimeout, mapengine.DefaultCatalog()),
		Router:   router,
		Geocoder: geocoder,
		Pins:     pins,
		Audit:    auditor,
		Metrics:  m,
		Log:      log,
	})
	defer views.CloseAll()

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Views:    views,
		Geocoder: geocoder,
		Places:   places,
		Router:   router,
		Verifier: verifier,
		Metrics:  m,
		Log:      log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server")
	}
}
