package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

// ErrNotFound is returned when a post id is absent.
var ErrNotFound = domain.ErrRecordNotFound

var recordColumns = []string{
	"post_id", "original_text", "verdict", "summary", "processed_at", "url", "manual_verdict", "image_path",
}

// SQLStore persists classified posts and briefings in SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	logger  *slog.Logger
	now     func() time.Time
}

var (
	_ ports.ResultStore      = (*SQLStore)(nil)
	_ ports.RecordMaintainer = (*SQLStore)(nil)
)

// NewSQLStore wires a sql.DB implementation.
func NewSQLStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
		logger:  logger,
		now:     time.Now,
	}
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Exists reports whether postID was already classified.
func (s *SQLStore) Exists(ctx context.Context, postID string) (bool, error) {
	query, args, err := s.sb.Select("1").From("processed_posts").Where(sq.Eq{"post_id": postID}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// Insert stores a new record. An existing post id is left untouched and
// reported as inserted=false.
func (s *SQLStore) Insert(ctx context.Context, rec domain.Record) (bool, error) {
	processedAt := rec.ProcessedAt
	if processedAt.IsZero() {
		processedAt = s.now()
	}
	query, args, err := s.sb.Insert("processed_posts").
		Columns("post_id", "original_text", "verdict", "summary", "processed_at", "url", "image_path").
		Values(rec.PostID, rec.OriginalText, string(rec.Verdict), rec.Summary, toUTC(processedAt), nullable(rec.URL), nullable(rec.ImagePath)).
		Suffix("ON CONFLICT (post_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", rec.PostID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		s.logger.Debug("record already exists", "post_id", rec.PostID)
		return false, nil
	}
	return true, nil
}

// Get loads one record.
func (s *SQLStore) Get(ctx context.Context, postID string) (domain.Record, error) {
	query, args, err := s.sb.Select(recordColumns...).From("processed_posts").Where(sq.Eq{"post_id": postID}).ToSql()
	if err != nil {
		return domain.Record{}, fmt.Errorf("build get: %w", err)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("get %s: %w", postID, err)
	}
	return rec, nil
}

// List returns records matching filter, newest first.
func (s *SQLStore) List(ctx context.Context, f domain.RecordFilter) ([]domain.Record, error) {
	builder := s.applyFilter(s.sb.Select(recordColumns...).From("processed_posts"), f).
		OrderBy("processed_at DESC", "post_id")
	if f.Limit > 0 {
		builder = builder.Limit(uint64(f.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	var result []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result = append(result, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return result, nil
}

func (s *SQLStore) applyFilter(b sq.SelectBuilder, f domain.RecordFilter) sq.SelectBuilder {
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"processed_at": toUTC(startOfDay(f.From))})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.Lt{"processed_at": toUTC(startOfDay(f.To).AddDate(0, 0, 1))})
	}
	if len(f.Platforms) > 0 {
		or := sq.Or{}
		for _, p := range f.Platforms {
			prefix := p.Prefix()
			or = append(or, sq.Expr("substr(post_id, 1, ?) = ?", len(prefix), prefix))
		}
		b = b.Where(or)
	}
	if len(f.Verdicts) > 0 {
		values := make([]string, 0, len(f.Verdicts))
		for _, v := range f.Verdicts {
			values = append(values, string(v))
		}
		b = b.Where(sq.Eq{"COALESCE(manual_verdict, verdict)": values})
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		b = b.Where(sq.Expr(`LOWER(original_text) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(term))+"%"))
	}
	if f.ExcludeNoise {
		b = b.Where(sq.NotEq{"verdict": string(domain.VerdictNoise)})
	}
	if len(f.SummaryMarkers) > 0 {
		or := sq.Or{}
		for _, m := range f.SummaryMarkers {
			or = append(or, sq.Like{"summary": "%" + m + "%"})
		}
		b = b.Where(or)
	}
	if f.MissingURL {
		b = b.Where(sq.Or{sq.Eq{"url": nil}, sq.Eq{"url": ""}})
	}
	if f.MissingImage {
		b = b.Where(sq.Or{sq.Eq{"image_path": nil}, sq.Eq{"image_path": ""}})
	}
	return b
}

// SetManualVerdict sets or (with nil) clears the human override.
func (s *SQLStore) SetManualVerdict(ctx context.Context, postID string, verdict *domain.Verdict) error {
	var value interface{}
	if verdict != nil {
		value = string(*verdict)
	}
	return s.updateOne(ctx, postID, sq.Eq{"manual_verdict": value})
}

// UpdateClassification overwrites the AI result, optionally dropping the override.
func (s *SQLStore) UpdateClassification(ctx context.Context, postID string, verdict domain.Verdict, summary string, clearManual bool) error {
	set := sq.Eq{"verdict": string(verdict), "summary": summary}
	if clearManual {
		set["manual_verdict"] = nil
	}
	return s.updateOne(ctx, postID, set)
}

// SetURL stores a reconstructed URL.
func (s *SQLStore) SetURL(ctx context.Context, postID, url string) error {
	return s.updateOne(ctx, postID, sq.Eq{"url": nullable(url)})
}

// SetImagePath stores or (with "") clears the asset path.
func (s *SQLStore) SetImagePath(ctx context.Context, postID, path string) error {
	return s.updateOne(ctx, postID, sq.Eq{"image_path": nullable(path)})
}

// ClearManualVerdicts drops every human override.
func (s *SQLStore) ClearManualVerdicts(ctx context.Context) (int64, error) {
	query, args, err := s.sb.Update("processed_posts").
		Set("manual_verdict", nil).
		Where(sq.NotEq{"manual_verdict": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reset: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset overrides: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) updateOne(ctx context.Context, postID string, set sq.Eq) error {
	query, args, err := s.sb.Update("processed_posts").
		SetMap(set).
		Where(sq.Eq{"post_id": postID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", postID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCachedBriefing returns cached content and whether it was built from
// exactly the record set hashed as currentHash. Missing entries return "".
func (s *SQLStore) GetCachedBriefing(ctx context.Context, key, currentHash string) (string, bool, error) {
	query, args, err := s.sb.Select("content", "context_hash").From("briefings").Where(sq.Eq{"date_key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build briefing get: %w", err)
	}
	var content, hash sql.NullString
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&content, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get briefing: %w", err)
	}
	return content.String, hash.Valid && hash.String == currentHash, nil
}

// SaveBriefing upserts a briefing with its context hash.
func (s *SQLStore) SaveBriefing(ctx context.Context, key, content, contextHash string) error {
	query, args, err := s.sb.Insert("briefings").
		Columns("date_key", "content", "context_hash", "created_at").
		Values(key, content, contextHash, toUTC(s.now())).
		Suffix(`ON CONFLICT (date_key) DO UPDATE SET
			content = excluded.content,
			context_hash = excluded.context_hash,
			created_at = excluded.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build briefing save: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save briefing: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (domain.Record, error) {
	var (
		rec                                      domain.Record
		text, verdict, summary, url, manual, img sql.NullString
		processedAt                              sql.NullTime
	)
	if err := row.Scan(&rec.PostID, &text, &verdict, &summary, &processedAt, &url, &manual, &img); err != nil {
		return domain.Record{}, err
	}
	rec.OriginalText = text.String
	rec.Verdict = domain.Verdict(verdict.String)
	rec.Summary = summary.String
	rec.URL = url.String
	rec.ImagePath = img.String
	if processedAt.Valid {
		rec.ProcessedAt = processedAt.Time
	}
	if manual.Valid && manual.String != "" {
		v := domain.Verdict(manual.String)
		rec.ManualVerdict = &v
	}
	return rec, nil
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func toUTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes a search term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
