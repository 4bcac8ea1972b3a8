// README: Audit module tests (validation, best-effort recording, Postgres round trip).
package audit

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (m *memStore) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memStore) ListByView(_ context.Context, viewID string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].ViewID == viewID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func TestEntryValidate(t *testing.T) {
	cases := []struct {
		name string
		e    Entry
		ok   bool
	}{
		{"minimal", Entry{ViewID: "v", Action: ActionViewOpened}, true},
		{"with point", Entry{ViewID: "v", Action: ActionPlacemarkDropped, Lat: ptr(14.1), Lng: ptr(121.5)}, true},
		{"missing view", Entry{Action: ActionViewOpened}, false},
		{"missing action", Entry{ViewID: "v"}, false},
		{"half point", Entry{ViewID: "v", Action: ActionPlacemarkDropped, Lat: ptr(14.1)}, false},
		{"out of range", Entry{ViewID: "v", Action: ActionPlacemarkDropped, Lat: ptr(140.0), Lng: ptr(14.0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.e.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEntry)
			}
		})
	}
}

func TestServiceRecord(t *testing.T) {
	st := &memStore{}
	svc := newService(st, zerolog.Nop())
	ctx := context.Background()

	svc.Record(ctx, Entry{ViewID: "v1", Action: ActionViewOpened})
	svc.Record(ctx, Entry{ViewID: "v1", Action: ActionEditRequested, PinID: ptr("p1")})
	svc.Record(ctx, Entry{ViewID: "", Action: ActionEditRequested})
	svc.Record(ctx, Entry{ViewID: "v2", Action: ActionViewOpened})

	got, err := svc.List(ctx, "v1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionEditRequested, got[0].Action)
	assert.Equal(t, "p1", *got[0].PinID)
}

func TestServiceRecordSwallowsStoreErrors(t *testing.T) {
	st := &memStore{err: errors.New("db down")}
	svc := newService(st, zerolog.Nop())
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), Entry{ViewID: "v", Action: ActionRouteRequested})
	})
}

func TestStoreRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	st := NewStore(db)
	ctx := context.Background()

	e := Entry{ViewID: "view-a", ActorUID: "uid-1", Action: ActionPlacemarkDropped, Lat: ptr(14.2), Lng: ptr(121.1)}
	require.NoError(t, st.Append(ctx, &e))
	assert.NotZero(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	require.NoError(t, st.Append(ctx, &Entry{ViewID: "view-a", Action: ActionDeleteRequested, PinID: ptr("p9")}))
	require.NoError(t, st.Append(ctx, &Entry{ViewID: "view-b", Action: ActionViewOpened}))

	got, err := st.ListByView(ctx, "view-a", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionDeleteRequested, got[0].Action)
	assert.Nil(t, got[0].Lat)
	assert.InDelta(t, 14.2, *got[1].Lat, 1e-9)
}

// setupTestDB connects to the database named by BANTAY_TEST_DSN, applies
// the migrations and empties the audit table. It skips when the variable
// is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("BANTAY_TEST_DSN")
	if dsn == "" {
		t.Skip("BANTAY_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, applyMigrations(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE TABLE map_audit")
	require.NoError(t, err)
	return db
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	paths, err := filepath.Glob(filepath.Join(root, "migrations", "*.sql"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, stmt := range splitSQL(stripSQLComments(string(content))) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	var out []string
	for _, p := range strings.Split(input, ";") {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
