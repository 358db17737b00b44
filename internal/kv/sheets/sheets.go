// Package sheets stores key-value snapshots in a Google Sheets tab. Each key
// occupies one row: column A holds the key, B the last update time and C
// onwards the value split into cell-sized chunks.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"smartfinance/internal/cache"
	"smartfinance/internal/kv"
	applog "smartfinance/internal/log"
)

const (
	// Google rejects cells longer than 50000 characters.
	chunkSize = 40000
	lastCol   = "AZ"
	cacheSize = 32
)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	CacheTTL        time.Duration
}

// valuesAPI is the subset of the Sheets values service the store needs.
type valuesAPI interface {
	get(ctx context.Context, rng string) ([][]any, error)
	update(ctx context.Context, rng string, row []any) error
	append(ctx context.Context, rng string, row []any) error
	clear(ctx context.Context, rng string) error
}

type Store struct {
	api    valuesAPI
	sheet  string
	cache  *cache.LRUCache[[]byte]
	logger *applog.Logger
	now    func() time.Time
}

var _ kv.Store = (*Store)(nil)

// New creates a Sheets-backed store using service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets store ready", "sheet", cfg.SheetName)
	return newStore(&googleValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg, logger), nil
}

func newStore(api valuesAPI, cfg Config, logger *applog.Logger) *Store {
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "smartfinance"
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{
		api:    api,
		sheet:  sheet,
		cache:  cache.NewLRUCache[[]byte](cacheSize, ttl),
		logger: logger.WithComponent(applog.ComponentSheets),
		now:    time.Now,
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// Cache exposes the read cache so it can be registered for cleanup.
func (s *Store) Cache() *cache.LRUCache[[]byte] { return s.cache }

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.cache.Get(key); ok {
		return append([]byte(nil), v...), nil
	}

	rows, err := s.api.get(ctx, fmt.Sprintf("%s!A:%s", s.sheet, lastCol))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.sheet, err)
	}
	for _, row := range rows {
		if len(row) == 0 || cell(row, 0) != key {
			continue
		}
		var b strings.Builder
		for i := 2; i < len(row); i++ {
			b.WriteString(cell(row, i))
		}
		if b.Len() == 0 {
			return nil, kv.ErrNotFound
		}
		value := []byte(b.String())
		s.cache.Set(key, value)
		return append([]byte(nil), value...), nil
	}
	return nil, kv.ErrNotFound
}

func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	n, err := s.rowOf(ctx, key)
	if err != nil {
		return err
	}

	row := []any{key, s.now().UTC().Format(time.RFC3339)}
	for _, c := range chunks(string(value), chunkSize) {
		row = append(row, c)
	}

	if n == 0 {
		if err := s.api.append(ctx, fmt.Sprintf("%s!A:A", s.sheet), row); err != nil {
			return fmt.Errorf("append %s: %w", key, err)
		}
	} else {
		// Clear first so a shorter value leaves no stale chunks behind.
		if err := s.api.clear(ctx, s.rowRange(n)); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
		if err := s.api.update(ctx, fmt.Sprintf("%s!A%d", s.sheet, n), row); err != nil {
			return fmt.Errorf("update %s: %w", key, err)
		}
	}

	s.cache.Set(key, append([]byte(nil), value...))
	s.logger.DebugContext(ctx, "Snapshot written", applog.FieldKey, key, "row", n, "bytes", len(value))
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	n, err := s.rowOf(ctx, key)
	if err != nil || n == 0 {
		return err
	}
	if err := s.api.clear(ctx, s.rowRange(n)); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

// rowOf returns the 1-based row holding key, or 0 when absent.
func (s *Store) rowOf(ctx context.Context, key string) (int, error) {
	rows, err := s.api.get(ctx, fmt.Sprintf("%s!A:A", s.sheet))
	if err != nil {
		return 0, fmt.Errorf("read keys of %s: %w", s.sheet, err)
	}
	for i, row := range rows {
		if len(row) > 0 && cell(row, 0) == key {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *Store) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", s.sheet, n, lastCol, n)
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return fmt.Sprint(row[i])
}

func chunks(s string, size int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}

type googleValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (g *googleValues) get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleValues) update(ctx context.Context, rng string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleValues) append(ctx context.Context, rng string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *googleValues) clear(ctx context.Context, rng string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(g.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
