package store

import (
	"context"
	"errors"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

// ErrDuplicate は同じ comment_id のコメントが既に保存されている場合に返されます。
var ErrDuplicate = errors.New("comment already stored")

// CommentStore はコメントの永続化を担うインターフェースです。
// 1件の Insert はそれ単体でコミットされます。
type CommentStore interface {
	Exists(ctx context.Context, commentID string) (bool, error)
	Insert(ctx context.Context, c domain.Comment) error
	// ListByWork は作品のコメントを保存順に返します。
	ListByWork(ctx context.Context, work domain.WorkID) ([]domain.Comment, error)
}
