package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores blobs as rows in a single table, keyed by blob key. It
// satisfies the same contract as the object-storage backends, which keeps the
// tracker runnable against a plain database when no bucket is available.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("ensure blobs table: %w", err)
	}
	return nil
}

func (p *Postgres) Download(ctx context.Context, key string) ([]byte, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = $1`, key)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (p *Postgres) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO blobs (key, content_type, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET content_type = $2, data = $3, updated_at = now()`,
		key, contentType, data)
	return err
}

// likePattern escapes LIKE wildcards in the prefix so keys containing
// underscores or percent signs match literally.
func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func (p *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT key FROM blobs WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, likePattern(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}
