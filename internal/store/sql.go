package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/spacedrep"
	"github.com/abhisek/examcore/internal/store/migrations"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	tableReviews  = "review_states"
	tableMastery  = "mastery_summaries"
	tableAttempts = "attempts"
)

var (
	reviewColumns = []string{
		"user_id", "item_id", "easiness_factor", "repetition_count", "interval_days",
		"due_at", "last_quality", "lapse_count", "last_reviewed_at", "version",
	}
	masteryColumns = []string{"user_id", "domain", "accuracy", "attempts", "updated_at", "version"}
	attemptColumns = []string{
		"id", "user_id", "item_id", "score", "points_earned", "points_possible",
		"quality", "submitted_at", "recorded_at",
	}
)

// gooseMu serializes migrations; goose keeps its base FS and dialect in
// package globals.
var gooseMu sync.Mutex

var errUnknownDriver = errors.New("unknown store driver")

// SQL is a StateStore and AttemptLog backed by SQLite or PostgreSQL.
// Statements are built with ent's SQL builder and run through an ent driver.
type SQL struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
	now     func() time.Time
}

var (
	_ StateStore = (*SQL)(nil)
	_ AttemptLog = (*SQL)(nil)
)

// Open connects to the database and applies pending migrations. driver is
// DriverSQLite or DriverPostgres; for SQLite, dsn is a file path or
// "file::memory:".
func Open(driver, dsn string) (*SQL, error) {
	var dia string
	switch driver {
	case DriverSQLite:
		dia = dialect.SQLite
	case DriverPostgres:
		dia = dialect.Postgres
	default:
		return nil, fmt.Errorf("open store: %w %q", errUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dia == dialect.SQLite {
		// One connection: in-memory databases are per-connection, and
		// SQLite allows a single writer anyway.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &SQL{
		db:      db,
		drv:     entsql.OpenDB(dia, db),
		dialect: dia,
		now:     time.Now,
	}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies all pending schema migrations.
func (s *SQL) Migrate() error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the current migration version.
func (s *SQL) SchemaVersion() (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return 0, fmt.Errorf("store: set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersion(s.db)
	if err != nil {
		return 0, fmt.Errorf("store: schema version: %w", err)
	}
	return v, nil
}

func (s *SQL) gooseDialect() string {
	if s.dialect == dialect.SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// DB returns the underlying *sql.DB.
func (s *SQL) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQL) Close() error {
	return s.drv.Close()
}

func (s *SQL) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.Unavailable("ping", err)
	}
	return nil
}

func (s *SQL) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *SQL) GetReview(ctx context.Context, userID, itemID string) (spacedrep.ReviewState, error) {
	b := s.builder()
	q, args := b.Select(reviewColumns...).
		From(b.Table(tableReviews)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("item_id", itemID))).
		Query()

	states, err := s.queryReviews(ctx, q, args)
	if err != nil {
		return spacedrep.ReviewState{}, apperr.Unavailable("get review", err)
	}
	if len(states) == 0 {
		return spacedrep.ReviewState{}, fmt.Errorf("review %s/%s: %w", userID, itemID, apperr.ErrNotFound)
	}
	return states[0], nil
}

func (s *SQL) ListReviews(ctx context.Context, userID string) ([]spacedrep.ReviewState, error) {
	b := s.builder()
	q, args := b.Select(reviewColumns...).
		From(b.Table(tableReviews)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("item_id").
		Query()

	states, err := s.queryReviews(ctx, q, args)
	if err != nil {
		return nil, apperr.Unavailable("list reviews", err)
	}
	return states, nil
}

func (s *SQL) PutReview(ctx context.Context, state spacedrep.ReviewState) (spacedrep.ReviewState, error) {
	saved, err := s.putReview(ctx, s.drv, state)
	if err != nil {
		return spacedrep.ReviewState{}, err
	}
	return saved, nil
}

func (s *SQL) putReview(ctx context.Context, eq dialect.ExecQuerier, state spacedrep.ReviewState) (spacedrep.ReviewState, error) {
	next := state
	next.Version = state.Version + 1

	b := s.builder()
	var (
		q    string
		args []any
	)
	if state.Version == 0 {
		q, args = b.Insert(tableReviews).
			Columns(reviewColumns...).
			Values(
				next.UserID, next.ItemID, next.EasinessFactor, next.RepetitionCount, next.IntervalDays,
				formatTime(next.DueAt), next.LastQuality, next.LapseCount, formatTime(next.LastReviewedAt), next.Version,
			).
			OnConflict(entsql.ConflictColumns("user_id", "item_id"), entsql.DoNothing()).
			Query()
	} else {
		q, args = b.Update(tableReviews).
			Set("easiness_factor", next.EasinessFactor).
			Set("repetition_count", next.RepetitionCount).
			Set("interval_days", next.IntervalDays).
			Set("due_at", formatTime(next.DueAt)).
			Set("last_quality", next.LastQuality).
			Set("lapse_count", next.LapseCount).
			Set("last_reviewed_at", formatTime(next.LastReviewedAt)).
			Set("version", next.Version).
			Where(entsql.And(
				entsql.EQ("user_id", state.UserID),
				entsql.EQ("item_id", state.ItemID),
				entsql.EQ("version", state.Version),
			)).
			Query()
	}

	n, err := execAffected(ctx, eq, q, args)
	if err != nil {
		return spacedrep.ReviewState{}, apperr.Unavailable("put review", err)
	}
	if n == 0 {
		return spacedrep.ReviewState{}, fmt.Errorf("put review %s/%s at version %d: %w",
			state.UserID, state.ItemID, state.Version, apperr.ErrConflict)
	}
	return next, nil
}

func (s *SQL) GetMastery(ctx context.Context, userID, domain string) (mastery.Summary, error) {
	b := s.builder()
	q, args := b.Select(masteryColumns...).
		From(b.Table(tableMastery)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("domain", domain))).
		Query()

	out, err := s.queryMastery(ctx, q, args)
	if err != nil {
		return mastery.Summary{}, apperr.Unavailable("get mastery", err)
	}
	if len(out) == 0 {
		return mastery.Summary{}, fmt.Errorf("mastery %s/%s: %w", userID, domain, apperr.ErrNotFound)
	}
	return out[0], nil
}

func (s *SQL) ListMastery(ctx context.Context, userID string) ([]mastery.Summary, error) {
	b := s.builder()
	q, args := b.Select(masteryColumns...).
		From(b.Table(tableMastery)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("domain").
		Query()

	out, err := s.queryMastery(ctx, q, args)
	if err != nil {
		return nil, apperr.Unavailable("list mastery", err)
	}
	return out, nil
}

func (s *SQL) PutMastery(ctx context.Context, summary mastery.Summary) (mastery.Summary, error) {
	saved, err := s.putMastery(ctx, s.drv, summary)
	if err != nil {
		return mastery.Summary{}, err
	}
	return saved, nil
}

func (s *SQL) putMastery(ctx context.Context, eq dialect.ExecQuerier, summary mastery.Summary) (mastery.Summary, error) {
	next := summary
	next.Version = summary.Version + 1

	b := s.builder()
	var (
		q    string
		args []any
	)
	if summary.Version == 0 {
		q, args = b.Insert(tableMastery).
			Columns(masteryColumns...).
			Values(next.UserID, next.Domain, next.Accuracy, next.Attempts, formatTime(next.UpdatedAt), next.Version).
			OnConflict(entsql.ConflictColumns("user_id", "domain"), entsql.DoNothing()).
			Query()
	} else {
		q, args = b.Update(tableMastery).
			Set("accuracy", next.Accuracy).
			Set("attempts", next.Attempts).
			Set("updated_at", formatTime(next.UpdatedAt)).
			Set("version", next.Version).
			Where(entsql.And(
				entsql.EQ("user_id", summary.UserID),
				entsql.EQ("domain", summary.Domain),
				entsql.EQ("version", summary.Version),
			)).
			Query()
	}

	n, err := execAffected(ctx, eq, q, args)
	if err != nil {
		return mastery.Summary{}, apperr.Unavailable("put mastery", err)
	}
	if n == 0 {
		return mastery.Summary{}, fmt.Errorf("put mastery %s/%s at version %d: %w",
			summary.UserID, summary.Domain, summary.Version, apperr.ErrConflict)
	}
	return next, nil
}

// SaveAttempt writes the review and summaries in one transaction. Any
// version mismatch rolls the whole write back.
func (s *SQL) SaveAttempt(ctx context.Context, review spacedrep.ReviewState, summaries []mastery.Summary) (spacedrep.ReviewState, []mastery.Summary, error) {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return spacedrep.ReviewState{}, nil, apperr.Unavailable("begin save attempt", err)
	}

	savedReview, savedSummaries, err := s.saveAttempt(ctx, tx, review, summaries)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return spacedrep.ReviewState{}, nil, errors.Join(err, apperr.Unavailable("rollback save attempt", rerr))
		}
		return spacedrep.ReviewState{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return spacedrep.ReviewState{}, nil, apperr.Unavailable("commit save attempt", err)
	}
	return savedReview, savedSummaries, nil
}

func (s *SQL) saveAttempt(ctx context.Context, tx dialect.Tx, review spacedrep.ReviewState, summaries []mastery.Summary) (spacedrep.ReviewState, []mastery.Summary, error) {
	savedReview, err := s.putReview(ctx, tx, review)
	if err != nil {
		return spacedrep.ReviewState{}, nil, err
	}
	out := make([]mastery.Summary, 0, len(summaries))
	for _, sum := range summaries {
		saved, err := s.putMastery(ctx, tx, sum)
		if err != nil {
			return spacedrep.ReviewState{}, nil, err
		}
		out = append(out, saved)
	}
	return savedReview, out, nil
}

func (s *SQL) AppendAttempt(ctx context.Context, rec AttemptRecord) (AttemptRecord, error) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = s.now()
	}

	q, args := s.builder().Insert(tableAttempts).
		Columns(attemptColumns...).
		Values(
			rec.ID, rec.UserID, rec.ItemID, rec.Score, rec.PointsEarned, rec.PointsPossible,
			rec.Quality, formatTime(rec.SubmittedAt), formatTime(rec.RecordedAt),
		).
		Query()
	if _, err := execAffected(ctx, s.drv, q, args); err != nil {
		return AttemptRecord{}, apperr.Unavailable("append attempt", err)
	}
	return rec, nil
}

func (s *SQL) ListAttempts(ctx context.Context, userID string, limit int) ([]AttemptRecord, error) {
	b := s.builder()
	sel := b.Select(attemptColumns...).
		From(b.Table(tableAttempts)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, q, args, rows); err != nil {
		return nil, apperr.Unavailable("list attempts", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			rec                   AttemptRecord
			submitted, recordedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ItemID, &rec.Score, &rec.PointsEarned,
			&rec.PointsPossible, &rec.Quality, &submitted, &recordedAt); err != nil {
			return nil, apperr.Unavailable("scan attempt", err)
		}
		var err error
		if rec.SubmittedAt, err = parseTime(submitted); err != nil {
			return nil, apperr.Unavailable("scan attempt", err)
		}
		if rec.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, apperr.Unavailable("scan attempt", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list attempts", err)
	}
	return out, nil
}

func (s *SQL) queryReviews(ctx context.Context, q string, args []any) ([]spacedrep.ReviewState, error) {
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []spacedrep.ReviewState
	for rows.Next() {
		var (
			rs            spacedrep.ReviewState
			due, reviewed string
		)
		if err := rows.Scan(&rs.UserID, &rs.ItemID, &rs.EasinessFactor, &rs.RepetitionCount,
			&rs.IntervalDays, &due, &rs.LastQuality, &rs.LapseCount, &reviewed, &rs.Version); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		var err error
		if rs.DueAt, err = parseTime(due); err != nil {
			return nil, err
		}
		if rs.LastReviewedAt, err = parseTime(reviewed); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *SQL) queryMastery(ctx context.Context, q string, args []any) ([]mastery.Summary, error) {
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mastery.Summary
	for rows.Next() {
		var (
			ms      mastery.Summary
			updated string
		)
		if err := rows.Scan(&ms.UserID, &ms.Domain, &ms.Accuracy, &ms.Attempts, &updated, &ms.Version); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		var err error
		if ms.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// execAffected runs a statement and returns the number of affected rows.
func execAffected(ctx context.Context, eq dialect.ExecQuerier, q string, args []any) (int64, error) {
	var res sql.Result
	if err := eq.Exec(ctx, q, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// applyPragmas configures SQLite for a single-process service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Timestamps are stored as RFC 3339 text in UTC so both dialects sort and
// compare them the same way.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
