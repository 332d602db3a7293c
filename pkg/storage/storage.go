package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("link not found")
	ErrInvalidOwner = errors.New("owner is required")
	ErrInvalidURL   = errors.New("url is required")
)

// DefaultDBTimeout is the busy timeout applied to every connection.
const DefaultDBTimeout = 5 * time.Second

type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	// Writers take the lock at BEGIN so busy_timeout applies instead of
	// failing on a stale read snapshot.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate", path, DefaultDBTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS links (
  id            TEXT PRIMARY KEY,
  owner         TEXT NOT NULL,
  url           TEXT NOT NULL,
  domain        TEXT,
  original_app  TEXT NOT NULL,
  title         TEXT,
  description   TEXT,
  thumbnail_url TEXT,
  reading_time  INTEGER,
  source        TEXT,
  is_read       INTEGER NOT NULL DEFAULT 0 CHECK (is_read IN (0,1)),
  created_at    INTEGER NOT NULL,
  updated_at    INTEGER NOT NULL,
  unfurled_at   INTEGER,
  UNIQUE(owner, url)
);
CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner, created_at);
CREATE INDEX IF NOT EXISTS idx_links_pending ON links(unfurled_at, created_at);
CREATE TABLE IF NOT EXISTS link_tags (
  link_id TEXT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
  tag     TEXT NOT NULL,
  PRIMARY KEY(link_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_link_tags_tag ON link_tags(tag);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db, now: time.Now}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

const linkColumns = "id, owner, url, domain, original_app, title, description, thumbnail_url, reading_time, source, is_read, created_at, updated_at, unfurled_at"

// SaveLink stores a link for owner. Saving a URL the owner already has updates
// the existing record instead: the app label is replaced, a non-empty title
// overwrites the old one and tags are merged.
func (d *DB) SaveLink(ctx context.Context, owner string, req SaveRequest) (Link, error) {
	if strings.TrimSpace(owner) == "" {
		return Link{}, ErrInvalidOwner
	}
	if strings.TrimSpace(req.URL) == "" {
		return Link{}, ErrInvalidURL
	}
	now := toUnix(d.now())
	tags := NormalizeTags(req.Tags)

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return Link{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM links WHERE owner = ? AND url = ?", owner, req.URL).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		domain, _ := ExtractRootDomain(req.URL)
		_, err = tx.ExecContext(ctx, `INSERT INTO links(id, owner, url, domain, original_app, title, is_read, created_at, updated_at) VALUES(?,?,?,?,?,?,0,?,?)`,
			id, owner, req.URL, nullIfEmpty(domain), req.OriginalApp, nullIfEmpty(req.Title), now, now)
		if err != nil {
			return Link{}, err
		}
	case err != nil:
		return Link{}, err
	default:
		_, err = tx.ExecContext(ctx, `UPDATE links SET original_app = ?, title = COALESCE(?, title), updated_at = ? WHERE id = ?`,
			req.OriginalApp, nullIfEmpty(req.Title), now, id)
		if err != nil {
			return Link{}, err
		}
	}

	for _, t := range tags {
		if _, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO link_tags(link_id, tag) VALUES(?, ?)", id, t); err != nil {
			return Link{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Link{}, err
	}
	return d.GetLink(ctx, owner, id)
}

// GetLink returns one of owner's links.
func (d *DB) GetLink(ctx context.Context, owner, id string) (Link, error) {
	if owner == "" {
		return Link{}, ErrInvalidOwner
	}
	return d.getLink(ctx, "SELECT "+linkColumns+" FROM links WHERE id = ? AND owner = ?", id, owner)
}

// LookupLink returns a link regardless of owner. Only background jobs use it.
func (d *DB) LookupLink(ctx context.Context, id string) (Link, error) {
	return d.getLink(ctx, "SELECT "+linkColumns+" FROM links WHERE id = ?", id)
}

func (d *DB) getLink(ctx context.Context, q string, args ...interface{}) (Link, error) {
	l, err := scanLink(d.sql.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}
	if err := d.attachTags(ctx, []*Link{&l}); err != nil {
		return Link{}, err
	}
	return l, nil
}

// ListLinks returns owner's links matching filters.
func (d *DB) ListLinks(ctx context.Context, owner string, opts ListOptions) ([]Link, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	where := "WHERE owner = ?"
	args := []interface{}{owner}
	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		like := "%" + q + "%"
		where += " AND (LOWER(COALESCE(title, '')) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(url) LIKE ?)"
		args = append(args, like, like, like)
	}
	if tags := NormalizeTags(opts.Tags); len(tags) > 0 {
		where += " AND id IN (SELECT link_id FROM link_tags WHERE tag IN (" + placeholders(len(tags)) + "))"
		for _, t := range tags {
			args = append(args, t)
		}
	}
	if opts.IsRead != nil {
		where += " AND is_read = ?"
		args = append(args, boolToInt(*opts.IsRead))
	}
	if opts.App != "" {
		where += " AND original_app = ?"
		args = append(args, opts.App)
	}

	q := "SELECT " + linkColumns + " FROM links " + where + orderClause(opts.SortBy)
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return d.queryLinks(ctx, q, args...)
}

// ListPendingUnfurl returns links that have not been enriched yet, oldest first.
func (d *DB) ListPendingUnfurl(ctx context.Context, limit int) ([]Link, error) {
	if limit <= 0 {
		limit = 50
	}
	return d.queryLinks(ctx, "SELECT "+linkColumns+" FROM links WHERE unfurled_at IS NULL ORDER BY created_at ASC LIMIT ?", limit)
}

func (d *DB) queryLinks(ctx context.Context, q string, args ...interface{}) ([]Link, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*Link, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := d.attachTags(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

// SetRead marks one of owner's links read or unread.
func (d *DB) SetRead(ctx context.Context, owner, id string, read bool) (Link, error) {
	if owner == "" {
		return Link{}, ErrInvalidOwner
	}
	res, err := d.sql.ExecContext(ctx, "UPDATE links SET is_read = ?, updated_at = ? WHERE id = ? AND owner = ?", boolToInt(read), toUnix(d.now()), id, owner)
	if err != nil {
		return Link{}, err
	}
	if err := expectAffected(res); err != nil {
		return Link{}, err
	}
	return d.GetLink(ctx, owner, id)
}

// ToggleRead flips the read flag of one of owner's links.
func (d *DB) ToggleRead(ctx context.Context, owner, id string) (Link, error) {
	if owner == "" {
		return Link{}, ErrInvalidOwner
	}
	res, err := d.sql.ExecContext(ctx, "UPDATE links SET is_read = 1 - is_read, updated_at = ? WHERE id = ? AND owner = ?", toUnix(d.now()), id, owner)
	if err != nil {
		return Link{}, err
	}
	if err := expectAffected(res); err != nil {
		return Link{}, err
	}
	return d.GetLink(ctx, owner, id)
}

// DeleteLink removes one of owner's links together with its tags.
func (d *DB) DeleteLink(ctx context.Context, owner, id string) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, "DELETE FROM links WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return err
	}
	if err = expectAffected(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM link_tags WHERE link_id = ?", id); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// UpdateMetadata stores enrichment results. A title already set on the link
// is kept; other fields are replaced when the new value is non-empty.
func (d *DB) UpdateMetadata(ctx context.Context, id string, m Metadata) error {
	now := toUnix(d.now())
	res, err := d.sql.ExecContext(ctx, `
UPDATE links SET
  title         = CASE WHEN title IS NULL OR title = '' THEN ? ELSE title END,
  description   = COALESCE(?, description),
  thumbnail_url = COALESCE(?, thumbnail_url),
  reading_time  = COALESCE(?, reading_time),
  source        = COALESCE(?, source),
  unfurled_at   = ?,
  updated_at    = ?
WHERE id = ?`,
		nullIfEmpty(m.Title), nullIfEmpty(m.Description), nullIfEmpty(m.ThumbnailURL), nullIfZero(m.ReadingTime), nullIfEmpty(m.Source), now, now, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// GetStats counts owner's links per source application.
func (d *DB) GetStats(ctx context.Context, owner string) ([]AppStats, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	query := `
		SELECT
			original_app,
			COUNT(*),
			SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END)
		FROM
			links
		WHERE
			owner = ?
		GROUP BY
			original_app
		ORDER BY
			original_app;
	`
	rows, err := d.sql.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []AppStats
	for rows.Next() {
		var s AppStats
		if err := rows.Scan(&s.App, &s.Total, &s.Unread); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(r rowScanner) (Link, error) {
	var (
		l                                  Link
		domain, title, desc, thumb, source sql.NullString
		readingTime, unfurledAt            sql.NullInt64
		isRead                             int
		createdAt, updatedAt               int64
	)
	if err := r.Scan(&l.ID, &l.Owner, &l.URL, &domain, &l.OriginalApp, &title, &desc, &thumb, &readingTime, &source, &isRead, &createdAt, &updatedAt, &unfurledAt); err != nil {
		return Link{}, err
	}
	l.Domain = domain.String
	l.Title = title.String
	l.Description = desc.String
	l.ThumbnailURL = thumb.String
	l.Source = source.String
	l.ReadingTime = int(readingTime.Int64)
	l.IsRead = isRead == 1
	l.CreatedAt = fromUnix(createdAt)
	l.UpdatedAt = fromUnix(updatedAt)
	if unfurledAt.Valid {
		t := fromUnix(unfurledAt.Int64)
		l.UnfurledAt = &t
	}
	l.Tags = []string{}
	return l, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
