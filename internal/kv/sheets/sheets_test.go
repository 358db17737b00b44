package sheets

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfinance/internal/kv"
	applog "smartfinance/internal/log"
)

// fakeValues emulates a single sheet tab as a grid of rows.
type fakeValues struct {
	rows  [][]any
	gets  int
	fail  error
	calls []string
}

func (f *fakeValues) rowNumber(rng string) int {
	ref := rng[strings.Index(rng, "!")+2:]
	if i := strings.Index(ref, ":"); i >= 0 {
		ref = ref[:i]
	}
	n, _ := strconv.Atoi(ref)
	return n
}

func (f *fakeValues) get(_ context.Context, rng string) ([][]any, error) {
	f.gets++
	f.calls = append(f.calls, "get "+rng)
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]any, len(f.rows))
	for i, r := range f.rows {
		if strings.HasSuffix(rng, "!A:A") && len(r) > 1 {
			r = r[:1]
		}
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

func (f *fakeValues) update(_ context.Context, rng string, row []any) error {
	f.calls = append(f.calls, "update "+rng)
	n := f.rowNumber(rng)
	for len(f.rows) < n {
		f.rows = append(f.rows, nil)
	}
	f.rows[n-1] = append([]any(nil), row...)
	return nil
}

func (f *fakeValues) append(_ context.Context, rng string, row []any) error {
	f.calls = append(f.calls, "append "+rng)
	f.rows = append(f.rows, append([]any(nil), row...))
	return nil
}

func (f *fakeValues) clear(_ context.Context, rng string) error {
	f.calls = append(f.calls, "clear "+rng)
	n := f.rowNumber(rng)
	if n >= 1 && n <= len(f.rows) {
		f.rows[n-1] = nil
	}
	return nil
}

func newTestStore(api valuesAPI) *Store {
	s := newStore(api, Config{SheetName: "Ledger", CacheTTL: time.Minute}, applog.Discard())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestStore_SaveAppendsThenUpdates(t *testing.T) {
	ctx := context.Background()
	api := &fakeValues{rows: [][]any{{"key", "updated_at", "value"}}}
	s := newTestStore(api)

	require.NoError(t, s.Save(ctx, "theme", []byte(`"dark"`)))
	require.Len(t, api.rows, 2)
	assert.Equal(t, []any{"theme", "2024-05-01T10:00:00Z", `"dark"`}, api.rows[1])

	require.NoError(t, s.Save(ctx, "theme", []byte(`"light"`)))
	require.Len(t, api.rows, 2)
	assert.Equal(t, `"light"`, api.rows[1][2])
	assert.Contains(t, api.calls, "clear Ledger!A2:AZ2")
	assert.Contains(t, api.calls, "update Ledger!A2")
}

func TestStore_LoadReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	api := &fakeValues{rows: [][]any{{"goals", "2024-01-01T00:00:00Z", `{"incomeGoal":`, `"10"}`}}}
	s := newTestStore(api)

	got, err := s.Load(ctx, "goals")
	require.NoError(t, err)
	assert.Equal(t, `{"incomeGoal":"10"}`, string(got))

	gets := api.gets
	_, err = s.Load(ctx, "goals")
	require.NoError(t, err)
	assert.Equal(t, gets, api.gets, "second load should be served from cache")
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(&fakeValues{})
	_, err := s.Load(context.Background(), "cards")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_LargeValuesAreChunked(t *testing.T) {
	ctx := context.Background()
	api := &fakeValues{}
	s := newTestStore(api)

	value := []byte(strings.Repeat("x", chunkSize*2+10))
	require.NoError(t, s.Save(ctx, "transactions", value))
	require.Len(t, api.rows, 1)
	assert.Len(t, api.rows[0], 2+3)

	s.cache.Delete("transactions")
	got, err := s.Load(ctx, "transactions")
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	api := &fakeValues{}
	s := newTestStore(api)

	require.NoError(t, s.Save(ctx, "cards", []byte(`[]`)))
	require.NoError(t, s.Delete(ctx, "cards"))
	_, err := s.Load(ctx, "cards")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "never-saved"))
}

func TestStore_PropagatesAPIErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := newTestStore(&fakeValues{fail: boom})

	_, err := s.Load(context.Background(), "goals")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Save(context.Background(), "goals", []byte(`{}`)), boom)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Config{}, applog.Discard())
	assert.EqualError(t, err, "missing spreadsheet id")

	_, err = New(context.Background(), Config{SpreadsheetID: "id"}, applog.Discard())
	assert.ErrorContains(t, err, "missing service account credentials")
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks("", 3))
	assert.Equal(t, []string{"abc"}, chunks("abc", 3))
	assert.Equal(t, []string{"abc", "de"}, chunks("abcde", 3))
}
