package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"TruthFilter/internal/config"
	"TruthFilter/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	ctx := context.Background()
	db, dialect, err := Open(ctx, config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLStore(db, dialect, nil)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func mustInsert(t *testing.T, s *SQLStore, rec domain.Record) {
	t.Helper()
	ok, err := s.Insert(context.Background(), rec)
	if err != nil || !ok {
		t.Fatalf("insert %s: ok=%v err=%v", rec.PostID, ok, err)
	}
}

func TestInsertIfAbsent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, domain.Record{PostID: "x_1", OriginalText: "first", Verdict: domain.VerdictTrue, Summary: "ok"})

	ok, err := s.Insert(ctx, domain.Record{PostID: "x_1", OriginalText: "second", Verdict: domain.VerdictFalse})
	if err != nil {
		t.Fatalf("duplicate insert must not fail: %v", err)
	}
	if ok {
		t.Fatalf("duplicate insert must report inserted=false")
	}

	rec, err := s.Get(ctx, "x_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.OriginalText != "first" || rec.Verdict != domain.VerdictTrue {
		t.Fatalf("original record overwritten: %+v", rec)
	}
	if rec.ProcessedAt.IsZero() {
		t.Fatalf("processed_at not set")
	}

	exists, err := s.Exists(ctx, "x_1")
	if err != nil || !exists {
		t.Fatalf("exists: %v %v", exists, err)
	}
	exists, err = s.Exists(ctx, "x_2")
	if err != nil || exists {
		t.Fatalf("unexpected exists for x_2: %v %v", exists, err)
	}
}

func TestManualVerdictAndReprocess(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, domain.Record{PostID: "wb_abc123", Verdict: domain.VerdictMixed})

	manual := domain.VerdictFalse
	if err := s.SetManualVerdict(ctx, "wb_abc123", &manual); err != nil {
		t.Fatalf("set manual: %v", err)
	}
	rec, _ := s.Get(ctx, "wb_abc123")
	if rec.EffectiveVerdict() != domain.VerdictFalse {
		t.Fatalf("override not applied: %+v", rec)
	}

	if err := s.UpdateClassification(ctx, "wb_abc123", domain.VerdictTrue, "re-run", true); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, _ = s.Get(ctx, "wb_abc123")
	if rec.ManualVerdict != nil || rec.Verdict != domain.VerdictTrue || rec.Summary != "re-run" {
		t.Fatalf("unexpected record after reprocess: %+v", rec)
	}

	if err := s.SetManualVerdict(ctx, "missing", &manual); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClearManualVerdicts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	manual := domain.VerdictTrue
	for _, id := range []string{"x_1", "x_2", "x_3"} {
		mustInsert(t, s, domain.Record{PostID: id, Verdict: domain.VerdictMixed})
	}
	_ = s.SetManualVerdict(ctx, "x_1", &manual)
	_ = s.SetManualVerdict(ctx, "x_2", &manual)

	n, err := s.ClearManualVerdicts(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 cleared, got %d (%v)", n, err)
	}
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

	mustInsert(t, s, domain.Record{PostID: "x_1", OriginalText: "Rocket launch today", Verdict: domain.VerdictTrue, ProcessedAt: day})
	mustInsert(t, s, domain.Record{PostID: "wb_abcdef", OriginalText: "[Weibo] rumor", Verdict: domain.VerdictMixed, ProcessedAt: day.Add(time.Hour)})
	mustInsert(t, s, domain.Record{PostID: "reddit_t3_q", OriginalText: "[Reddit] gm", Verdict: domain.VerdictNoise, ProcessedAt: day.Add(2 * time.Hour)})
	mustInsert(t, s, domain.Record{PostID: "xx_old", OriginalText: "old rocket", Verdict: domain.VerdictTrue, ProcessedAt: day.AddDate(0, 0, -3)})

	manual := domain.VerdictFalse
	if err := s.SetManualVerdict(ctx, "wb_abcdef", &manual); err != nil {
		t.Fatalf("set manual: %v", err)
	}

	tests := []struct {
		name   string
		filter domain.RecordFilter
		want   []string
	}{
		{
			name:   "date range inclusive day",
			filter: domain.RecordFilter{From: day, To: day},
			want:   []string{"reddit_t3_q", "wb_abcdef", "x_1"},
		},
		{
			name:   "platform prefix is exact",
			filter: domain.RecordFilter{Platforms: []domain.Platform{domain.PlatformX}},
			want:   []string{"x_1"},
		},
		{
			name:   "effective verdict",
			filter: domain.RecordFilter{Verdicts: []domain.Verdict{domain.VerdictFalse}},
			want:   []string{"wb_abcdef"},
		},
		{
			name:   "search is case insensitive",
			filter: domain.RecordFilter{Search: "ROCKET"},
			want:   []string{"x_1", "xx_old"},
		},
		{
			name:   "exclude noise with limit",
			filter: domain.RecordFilter{ExcludeNoise: true, Limit: 2},
			want:   []string{"wb_abcdef", "x_1"},
		},
	}

	for _, tt := range tests {
		got, err := s.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: list: %v", tt.name, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%s: got %d records, want %d", tt.name, len(got), len(tt.want))
		}
		for i, rec := range got {
			if rec.PostID != tt.want[i] {
				t.Fatalf("%s: position %d = %s, want %s", tt.name, i, rec.PostID, tt.want[i])
			}
		}
	}
}

func TestListSearchMatchesWildcardsLiterally(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, domain.Record{PostID: "x_1", OriginalText: "rate_limit hit", Verdict: domain.VerdictTrue})
	mustInsert(t, s, domain.Record{PostID: "x_2", OriginalText: "rateXlimit hit", Verdict: domain.VerdictTrue})
	mustInsert(t, s, domain.Record{PostID: "x_3", OriginalText: "up 100% today", Verdict: domain.VerdictTrue})
	mustInsert(t, s, domain.Record{PostID: "x_4", OriginalText: "up 1000 today", Verdict: domain.VerdictTrue})
	mustInsert(t, s, domain.Record{PostID: "x_5", OriginalText: `path a\b`, Verdict: domain.VerdictTrue})

	tests := map[string]string{
		"rate_limit": "x_1",
		"100%":       "x_3",
		`a\b`:       "x_5",
	}
	for term, want := range tests {
		got, err := s.List(ctx, domain.RecordFilter{Search: term})
		if err != nil {
			t.Fatalf("%s: list: %v", term, err)
		}
		if len(got) != 1 || got[0].PostID != want {
			ids := make([]string, 0, len(got))
			for _, rec := range got {
				ids = append(ids, rec.PostID)
			}
			t.Fatalf("search %q: got %v, want [%s]", term, ids, want)
		}
	}
}

func TestMaintenancePredicates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, domain.Record{PostID: "x_1", Summary: "Error: quota", URL: "https://x.com/a/status/1"})
	mustInsert(t, s, domain.Record{PostID: "x_2", Summary: "404 page", ImagePath: "assets/images/x_2.jpg"})
	mustInsert(t, s, domain.Record{PostID: "x_3", Summary: "[VERDICT: TRUE]", URL: "u", ImagePath: "p"})

	errs, _ := s.List(ctx, domain.RecordFilter{SummaryMarkers: []string{"Error", "404"}})
	if len(errs) != 2 {
		t.Fatalf("expected 2 error records, got %d", len(errs))
	}
	noURL, _ := s.List(ctx, domain.RecordFilter{MissingURL: true})
	if len(noURL) != 1 || noURL[0].PostID != "x_2" {
		t.Fatalf("unexpected missing url set %+v", noURL)
	}
	noImg, _ := s.List(ctx, domain.RecordFilter{MissingImage: true})
	if len(noImg) != 1 || noImg[0].PostID != "x_1" {
		t.Fatalf("unexpected missing image set %+v", noImg)
	}

	if err := s.SetURL(ctx, "x_2", "https://x.com/i/status/2"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := s.SetImagePath(ctx, "x_2", ""); err != nil {
		t.Fatalf("clear image: %v", err)
	}
	rec, _ := s.Get(ctx, "x_2")
	if rec.URL != "https://x.com/i/status/2" || rec.ImagePath != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestBriefingCache(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	content, fresh, err := s.GetCachedBriefing(ctx, "report_a", "h1")
	if err != nil || content != "" || fresh {
		t.Fatalf("expected empty cache, got %q %v %v", content, fresh, err)
	}

	if err := s.SaveBriefing(ctx, "report_a", "v1", "h1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	content, fresh, _ = s.GetCachedBriefing(ctx, "report_a", "h1")
	if content != "v1" || !fresh {
		t.Fatalf("expected fresh v1, got %q %v", content, fresh)
	}
	content, fresh, _ = s.GetCachedBriefing(ctx, "report_a", "h2")
	if content != "v1" || fresh {
		t.Fatalf("expected stale v1, got %q %v", content, fresh)
	}

	if err := s.SaveBriefing(ctx, "report_a", "v2", "h2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	content, fresh, _ = s.GetCachedBriefing(ctx, "report_a", "h2")
	if content != "v2" || !fresh {
		t.Fatalf("expected fresh v2, got %q %v", content, fresh)
	}
}

func TestMigrateUpgradesOldSchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, dialect, err := Open(ctx, config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "old.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `CREATE TABLE processed_posts (
		post_id TEXT PRIMARY KEY, original_text TEXT, verdict TEXT, summary TEXT, processed_at TIMESTAMP)`); err != nil {
		t.Fatalf("seed old schema: %v", err)
	}

	store := NewSQLStore(db, dialect, nil)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cols, err := store.columns(ctx, "processed_posts")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	for _, c := range lateColumns {
		if !cols[c] {
			t.Fatalf("column %s missing after migrate", c)
		}
	}
}

func TestResolveDSN(t *testing.T) {
	t.Parallel()

	d, driver, _ := resolveDSN("postgres://u:p@localhost/db")
	if d != DialectPostgres || driver != "postgres" {
		t.Fatalf("unexpected postgres resolution %s %s", d, driver)
	}
	d, driver, dsn := resolveDSN("smtf_memory.db")
	if d != DialectSQLite || driver != "sqlite" {
		t.Fatalf("unexpected sqlite resolution %s %s", d, driver)
	}
	if want := "file:smtf_memory.db?"; dsn[:len(want)] != want {
		t.Fatalf("unexpected dsn %s", dsn)
	}
}
