package domain

import "time"

// WorkID は作品の外部識別子です。クロール中は不変です。
type WorkID string

// Comment は永続化されるコメント1件を表します。
// 削除済みコメントは WorkID, CommentID, ParentID 以外がすべて nil になります。
type Comment struct {
	WorkID    WorkID     `json:"work_id"`
	CommentID string     `json:"comment_id"`
	Chapter   *int       `json:"chapter,omitempty"`
	Author    *string    `json:"author,omitempty"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
	ParentID  *string    `json:"parent_id,omitempty"`
	Body      *string    `json:"body,omitempty"`
}

// IsDeleted は、本文・投稿者・日時のいずれも持たないコメントかどうかを返します。
func (c Comment) IsDeleted() bool {
	return c.Author == nil && c.PostedAt == nil && c.Body == nil
}
