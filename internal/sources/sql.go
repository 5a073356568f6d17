package sources

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"audiencelens/internal/core"
	"audiencelens/internal/logger"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads posts from a table in Postgres or SQLite.
// Expected columns: id, run_id, query, platform, content, sentiment, engagement, created_at.
type SQLSource struct {
	db         *sql.DB
	driver     string
	table      string
	normalizer *Normalizer
	log        *slog.Logger
}

// NewSQLSource wraps an open database handle
func NewSQLSource(db *sql.DB, driver, table string, normalizer *Normalizer) (*SQLSource, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	return &SQLSource{
		db:         db,
		driver:     driver,
		table:      table,
		normalizer: normalizer,
		log:        logger.Get(),
	}, nil
}

// OpenSQLSource opens and pings a database connection
func OpenSQLSource(ctx context.Context, driver, connectionString, table string, normalizer *Normalizer) (*SQLSource, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("database connection string is not configured")
	}

	db, err := sql.Open(driver, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	source, err := NewSQLSource(db, driver, table, normalizer)
	if err != nil {
		db.Close()
		return nil, err
	}
	return source, nil
}

// Close releases the database handle
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Posts implements PostSource. Rows are ordered by creation time then id.
func (s *SQLSource) Posts(ctx context.Context, q PostQuery) ([]core.Post, error) {
	var conditions []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = %s", column, s.placeholder(len(args))))
	}
	if q.Platform != "" {
		add("platform", q.Platform)
	}
	if q.Query != "" {
		add("query", q.Query)
	}
	if q.RunID != "" {
		add("run_id", q.RunID)
	}

	query := fmt.Sprintf("SELECT id, content, sentiment, engagement, created_at, platform FROM %s", s.table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += " LIMIT " + s.placeholder(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var wire []WirePost
	for rows.Next() {
		var (
			id, content, platform sql.NullString
			sentiment, engagement sql.NullFloat64
			createdAt             sql.NullTime
		)
		if err := rows.Scan(&id, &content, &sentiment, &engagement, &createdAt, &platform); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		w := WirePost{
			ID:       id.String,
			Content:  content.String,
			Platform: platform.String,
		}
		if sentiment.Valid {
			w.Sentiment = &sentiment.Float64
		}
		if engagement.Valid {
			w.Engagement = &engagement.Float64
		}
		if createdAt.Valid {
			w.Timestamp = &createdAt.Time
		}
		wire = append(wire, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	s.log.Debug("Loaded posts from database", "table", s.table, "count", len(wire))
	return s.normalizer.Normalize(wire)
}

// EnsureSchema creates the posts table when it does not exist
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	floatType, timeType := "DOUBLE PRECISION", "TIMESTAMPTZ"
	if s.driver == DriverSQLite {
		floatType, timeType = "REAL", "DATETIME"
	}

	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		query TEXT,
		platform TEXT,
		content TEXT,
		sentiment %s,
		engagement %s,
		created_at %s
	)`, s.table, floatType, floatType, timeType)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	return nil
}

// Insert stores posts under a run id and query label in one transaction.
// Posts whose id already exists are skipped.
func (s *SQLSource) Insert(ctx context.Context, runID, query string, posts []core.Post) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := make([]string, 8)
	for i := range placeholders {
		placeholders[i] = s.placeholder(i + 1)
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, run_id, query, platform, content, sentiment, engagement, created_at)
		VALUES (%s) ON CONFLICT (id) DO NOTHING`, s.table, strings.Join(placeholders, ", "))

	inserted := 0
	for _, post := range posts {
		var engagement sql.NullFloat64
		if v, ok := post.EngagementValue(); ok {
			engagement = sql.NullFloat64{Float64: v, Valid: true}
		}
		createdAt := sql.NullTime{Time: post.Timestamp, Valid: !post.Timestamp.IsZero()}

		result, err := tx.ExecContext(ctx, stmt,
			post.ID, runID, query, post.Platform, post.Content, post.Sentiment, engagement, createdAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert post %s: %w", post.ID, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit posts: %w", err)
	}

	s.log.Info("Stored posts", "table", s.table, "run_id", runID, "inserted", inserted, "total", len(posts))
	return inserted, nil
}

// placeholder returns the n-th (1-based) bind parameter for the driver
func (s *SQLSource) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
