package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS comments (
	seq        BIGSERIAL,
	work_id    TEXT        NOT NULL,
	comment_id TEXT        PRIMARY KEY,
	chapter    INTEGER,
	author     TEXT,
	posted_at  TIMESTAMPTZ,
	parent_id  TEXT        REFERENCES comments (comment_id),
	body       TEXT
);
CREATE INDEX IF NOT EXISTS comments_work_seq_idx ON comments (work_id, seq);
`

// OpenPool は DSN から pgxpool を作成し、疎通確認まで行います。
// クロールは逐次実行のため接続数は小さく抑えます。
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("DATABASE_URL (--dsn) が指定されていません")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("DSN の解析に失敗しました: %w", err)
	}
	cfg.MaxConns = 2
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("データベースへの接続に失敗しました: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("データベースの疎通確認に失敗しました: %w", err)
	}
	return pool, nil
}

// Postgres は PostgreSQL を使った CommentStore 実装です。
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres は Postgres を作成します。プールのクローズは呼び出し側の責務です。
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema は comments テーブルが無ければ作成します。
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("スキーマの作成に失敗しました: %w", err)
	}
	return nil
}

func (s *Postgres) Exists(ctx context.Context, commentID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE comment_id = $1)`, commentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("comment_id %s の存在確認に失敗しました: %w", commentID, err)
	}
	return exists, nil
}

func (s *Postgres) Insert(ctx context.Context, c domain.Comment) error {
	const q = `INSERT INTO comments (work_id, comment_id, chapter, author, posted_at, parent_id, body)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, q, string(c.WorkID), c.CommentID, c.Chapter, c.Author, c.PostedAt, c.ParentID, c.Body)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("comment_id %s: %w", c.CommentID, ErrDuplicate)
		}
		return fmt.Errorf("comment_id %s の保存に失敗しました: %w", c.CommentID, err)
	}
	return nil
}

func (s *Postgres) ListByWork(ctx context.Context, work domain.WorkID) ([]domain.Comment, error) {
	const q = `SELECT comment_id, chapter, author, posted_at, parent_id, body
	           FROM comments
	           WHERE work_id = $1
	           ORDER BY seq ASC`
	rows, err := s.pool.Query(ctx, q, string(work))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		c := domain.Comment{WorkID: work}
		if err := rows.Scan(&c.CommentID, &c.Chapter, &c.Author, &c.PostedAt, &c.ParentID, &c.Body); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
