// README: Smoke cases for the map API; includes HTTP, DB, Redis, and throughput checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
	StatusPending = "PENDING"
	StatusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// viewID is the view opened by the view flow cases.
	viewID string
	marker string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "audit log store reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "geocode cache reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusFail, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply migration SQL",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: StatusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "tables from the migration file exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass}
			},
		},

		httpCase("API: health", http.MethodGet, "/health", nil, false, []int{200}),
		httpCase("API: metrics exposed", http.MethodGet, "/metrics", nil, false, []int{200}),
		httpCase("API: view without token -> 401", http.MethodPost, "/api/views", nil, false, []int{401}),

		// View flow; each step needs the view opened by the first.
		{
			Name:  "View: open",
			Focus: "engine initialises with the default style",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" {
					return Result{Status: StatusSkip, Note: "no token"}
				}
				var st viewState
				res := r.call(ctx, http.MethodPost, "/api/views", map[string]any{"style": "streets"}, &st, []int{201})
				if res.Status == StatusPass {
					r.viewID = st.ID
				}
				return res
			},
		},
		viewCase("View: set pins", http.MethodPut, "/inputs", map[string]any{
			"pins": []map[string]any{
				{"id": "bench-1", "type": "Fire", "title": "Bench fire", "lat": 14.7443, "lng": 121.6487},
				{"id": "bench-2", "type": "Hospital", "title": "Bench hospital", "lat": 14.7301, "lng": 121.6512},
			},
			"filters":        map[string]bool{"roads": true},
			"directions":     true,
			"showTravelTime": true,
		}, []int{200}),
		viewCase("View: report location", http.MethodPost, "/location", map[string]any{
			"lat": 14.7420, "lng": 121.6440, "accuracy": 12,
		}, []int{200}),
		{
			Name:  "View: marker hover opens preview",
			Focus: "marker mouseenter shows a hover popup",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.viewID == "" {
					return Result{Status: StatusSkip, Note: "no view"}
				}
				var st viewState
				if res := r.call(ctx, http.MethodGet, "/api/views/"+r.viewID, nil, &st, []int{200}); res.Status != StatusPass {
					return res
				}
				idx := slices.IndexFunc(st.Scene.Markers, func(m markerState) bool { return m.Role == "standard" })
				if idx < 0 {
					return Result{Status: StatusFail, Note: "no pin markers"}
				}
				r.marker = st.Scene.Markers[idx].ID
				res := r.call(ctx, http.MethodPost, "/api/views/"+r.viewID+"/events", map[string]any{
					"kind": "marker", "markerId": r.marker, "domEvent": "mouseenter",
				}, &st, []int{200})
				if res.Status == StatusPass && !slices.ContainsFunc(st.Scene.Popups, func(p popupState) bool { return p.Kind == "hover" }) {
					return Result{Status: StatusFail, Latency: res.Latency, Note: "no hover popup"}
				}
				return res
			},
		},
		viewCase("View: placemark on", http.MethodPut, "/placemark", map[string]any{"active": true}, []int{200}),
		viewCase("View: switch style", http.MethodPut, "/style", map[string]any{"style": "dark"}, []int{200}),
		viewCase("View: bad event -> 400", http.MethodPost, "/events", map[string]any{"kind": "bogus"}, []int{400}),

		httpCase("Geocode: reverse", http.MethodGet, "/api/geocode/reverse?lat=14.7443&lng=121.6487", nil, true, []int{200}),
		httpCase("Geocode: reverse invalid -> 400", http.MethodGet, "/api/geocode/reverse?lat=914&lng=121", nil, true, []int{400}),
		httpCase("Geocode: search", http.MethodGet, "/api/geocode/search?q=hospital&lat=14.7443&lng=121.6487", nil, true, []int{200}),
		httpCase("Route: travel time", http.MethodGet, "/api/route?fromLat=14.7420&fromLng=121.6440&toLat=14.7301&toLng=121.6512", nil, true, []int{200}),

		{
			Name:  "Audit: view actions recorded",
			Focus: "view_opened row written for the bench view",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil || r.viewID == "" {
					return Result{Status: StatusSkip, Note: "no db or view"}
				}
				var n int
				err := r.db.QueryRow(ctx, "SELECT count(*) FROM map_audit WHERE view_id=$1", r.viewID).Scan(&n)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				if n == 0 {
					return Result{Status: StatusFail, Note: "no audit rows"}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("rows=%d", n)}
			},
		},
		{
			Name:  "Perf: view state throughput",
			Focus: "snapshot reads under concurrency",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.viewID == "" {
					return Result{Status: StatusSkip, Note: "no view"}
				}
				return perfLoad(ctx, r, http.MethodGet, "/api/views/"+r.viewID, nil)
			},
		},
		viewCase("View: close", http.MethodDelete, "", nil, []int{204}),
	}
}

type markerState struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type popupState struct {
	Kind string `json:"kind"`
}

type viewState struct {
	ID    string `json:"id"`
	Scene struct {
		Markers []markerState `json:"markers"`
		Popups  []popupState  `json:"popups"`
	} `json:"scene"`
}

func (r *Runner) request(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.Token != "" && strings.HasPrefix(path, "/api/") {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	return req, nil
}

// call sends one request and decodes a 2xx body into out when non-nil.
func (r *Runner) call(ctx context.Context, method, path string, body, out any, ok []int) Result {
	req, err := r.request(ctx, method, path, body)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	note := fmt.Sprintf("status=%d", resp.StatusCode)

	if !slices.Contains(ok, resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusServiceUnavailable {
			return Result{Status: StatusPending, Latency: latency, Note: note}
		}
		return Result{Status: StatusFail, Latency: latency, Note: note}
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Result{Status: StatusFail, Latency: latency, Note: "decode: " + err.Error()}
		}
	}
	return Result{Status: StatusPass, Latency: latency, Note: note}
}

func httpCase(name, method, path string, body any, needsToken bool, ok []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			if needsToken && r.cfg.Token == "" {
				return Result{Status: StatusSkip, Note: "no token"}
			}
			return r.call(ctx, method, path, body, nil, ok)
		},
	}
}

func viewCase(name, method, suffix string, body any, ok []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "view flow",
		Run: func(ctx context.Context, r *Runner) Result {
			if r.viewID == "" {
				return Result{Status: StatusSkip, Note: "no view"}
			}
			return r.call(ctx, method, "/api/views/"+r.viewID+suffix, body, nil, ok)
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, method, path string, body any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, err := r.request(ctx, method, path, body)
				if err != nil {
					errCount.Add(1)
					return
				}
				resp, err := r.httpc.Do(req)
				if err != nil {
					errCount.Add(1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := createTable.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
