package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

// Memory はプロセス内で完結する CommentStore 実装です。
// テストとドライランに使用します。
type Memory struct {
	mu       sync.RWMutex
	comments map[string]domain.Comment
	order    []string // 保存順の comment_id
	inserts  int
}

// NewMemory は空の Memory を作成します。
func NewMemory() *Memory {
	return &Memory{comments: make(map[string]domain.Comment)}
}

func (m *Memory) Exists(_ context.Context, commentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.comments[commentID]
	return ok, nil
}

func (m *Memory) Insert(_ context.Context, c domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if _, ok := m.comments[c.CommentID]; ok {
		return fmt.Errorf("comment_id %s: %w", c.CommentID, ErrDuplicate)
	}
	if c.ParentID != nil {
		if _, ok := m.comments[*c.ParentID]; !ok {
			return fmt.Errorf("comment_id %s: 親コメント %s が存在しません", c.CommentID, *c.ParentID)
		}
	}
	m.comments[c.CommentID] = c
	m.order = append(m.order, c.CommentID)
	return nil
}

func (m *Memory) ListByWork(_ context.Context, work domain.WorkID) ([]domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Comment
	for _, id := range m.order {
		if c := m.comments[id]; c.WorkID == work {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get は保存済みのコメントを返します。テストとドライランの確認用です。
func (m *Memory) Get(commentID string) (domain.Comment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.comments[commentID]
	return c, ok
}

// Len は保存済みコメント数を返します。テストとドライランの確認用です。
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// InsertCalls は Insert が呼ばれた回数（失敗を含む）を返します。テスト用です。
func (m *Memory) InsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inserts
}
