package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"

	"github.com/google/uuid"
)

// timeLayout is fixed width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const analysisColumns = `id, url, status, score, results, created_at, updated_at`

// AnalysisStore is the SQL-backed Record Store.
type AnalysisStore struct {
	db      *sql.DB
	dialect Dialect
	clock   adaptors.Clock
}

func NewAnalysisStore(db *sql.DB, dialect Dialect, clock adaptors.Clock) *AnalysisStore {
	if clock == nil {
		clock = adaptors.SystemClock{}
	}
	return &AnalysisStore{db: db, dialect: dialect, clock: clock}
}

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.NewValidationError("url", "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.NewValidationError("url", "url could not be parsed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewValidationError("url", "url must use http or https")
	}
	if u.Host == "" {
		return errors.NewValidationError("url", "url must include a host")
	}
	return nil
}

// Create validates rawURL and inserts a new processing analysis.
func (s *AnalysisStore) Create(ctx context.Context, rawURL string) (*models.Analysis, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	a := &models.Analysis{
		ID:        uuid.NewString(),
		URL:       strings.TrimSpace(rawURL),
		Status:    models.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO analyses (id, url, status, score, results, created_at, updated_at)
		VALUES (?, ?, ?, NULL, NULL, ?, ?)
	`), a.ID, a.URL, string(a.Status), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return nil, errors.Wrap(err, `failed to insert analysis`)
	}
	return a, nil
}

// List returns every analysis, newest first.
func (s *AnalysisStore) List(ctx context.Context) ([]*models.Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, `failed to list analyses`)
	}
	defer rows.Close() //nolint:errcheck

	analyses := []*models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, errors.Wrap(err, `failed to scan analysis`)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, `failed to iterate analyses`)
	}
	return analyses, nil
}

func (s *AnalysisStore) Get(ctx context.Context, id string) (*models.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+analysisColumns+` FROM analyses WHERE id = ?`), id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, `failed to get analysis`)
	}
	return a, nil
}

// Update applies a terminal transition. Only processing rows are updated, so
// a finished analysis never changes again.
func (s *AnalysisStore) Update(ctx context.Context, id string, t models.Transition) error {
	if !t.Valid() {
		return errors.New(`invalid transition`)
	}

	var results sql.NullString
	if r := t.Results(); r != nil {
		raw, err := json.Marshal(r)
		if err != nil {
			return errors.Wrap(err, `failed to encode audit results`)
		}
		results = sql.NullString{String: string(raw), Valid: true}
	}
	var score sql.NullInt64
	if sc := t.Score(); sc != nil {
		score = sql.NullInt64{Int64: int64(*sc), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE analyses SET status = ?, score = ?, results = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`), string(t.Status()), score, results, formatTime(t.At()), id, string(models.StatusProcessing))
	if err != nil {
		return errors.Wrap(err, `failed to update analysis`)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, `failed to read affected rows`)
	}
	if affected > 0 {
		return nil
	}

	exists, err := s.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.ErrNotFound
	}
	return errors.ErrInvalidTransition
}

func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM analyses WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, `failed to delete analysis`)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, `failed to read affected rows`)
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *AnalysisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *AnalysisStore) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM analyses WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, `failed to check analysis`)
	}
	return n > 0, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *AnalysisStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanAnalysis(row interface{ Scan(...any) error }) (*models.Analysis, error) {
	var a models.Analysis
	var status, createdAt, updatedAt string
	var score sql.NullInt64
	var results sql.NullString

	if err := row.Scan(&a.ID, &a.URL, &status, &score, &results, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	a.Status = models.Status(status)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)

	// score and results only surface for completed rows
	if a.Status != models.StatusCompleted {
		return &a, nil
	}
	if score.Valid {
		sc := int(score.Int64)
		a.Score = &sc
	}
	if results.Valid {
		var r models.AuditResult
		if err := json.Unmarshal([]byte(results.String), &r); err != nil {
			return nil, errors.Wrap(err, `failed to decode audit results`)
		}
		a.Results = r.Normalize()
	}
	return &a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
