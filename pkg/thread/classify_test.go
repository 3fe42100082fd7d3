package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantKind  Kind
		wantID    string
		wantURL   string
		wantKids  int
		hasHeader bool
	}{
		{
			name:      "comment with header",
			html:      commentHTML("101", "alice", 2, "hi"),
			wantKind:  KindComment,
			wantID:    "101",
			hasHeader: true,
		},
		{
			name:     "deleted comment",
			html:     deletedHTML("102"),
			wantKind: KindComment,
			wantID:   "102",
		},
		{
			name:     "collapsed stub",
			html:     stubHTML("/comments/103"),
			wantKind: KindCollapsedStub,
			wantURL:  "/comments/103",
		},
		{
			name:     "nested subthread",
			html:     nestedHTML(commentHTML("104", "bob", 0, "a"), commentHTML("105", "carol", 0, "b")),
			wantKind: KindNestedSubthread,
			wantKids: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Classify(mustItem(t, tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, node.Kind)
			assert.Equal(t, tt.wantID, node.CommentID)
			assert.Equal(t, tt.wantURL, node.ExpandURL)
			assert.Len(t, node.Children, tt.wantKids)
			assert.Equal(t, tt.hasHeader, node.HasHeader)
		})
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "nested wrapper gained an attribute", html: `<li class="replies"><ol class="thread"></ol></li>`},
		{name: "comment id without digits", html: `<li class="comment group" id="comment_abc"></li>`},
		{name: "bare li without child list", html: `<li>text only</li>`},
		{name: "stub without link", html: `<li class="comment">no link</li>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(mustItem(t, tt.html))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnrecognizedNode)
		})
	}
}

func TestClassify_StubNeedsExactClassSet(t *testing.T) {
	// "comment" 以外のクラスを併せ持つ要素は折りたたみスレッドではない
	_, err := Classify(mustItem(t, `<li class="comment group"><a href="/comments/1">x</a></li>`))
	assert.ErrorIs(t, err, ErrUnrecognizedNode)
}

func TestItems_OnlyDirectChildren(t *testing.T) {
	items := mustItems(t, threadPage(
		commentHTML("1", "alice", 0, "a"),
		nestedHTML(commentHTML("2", "bob", 0, "b")),
	))
	assert.Len(t, items, 2)
}

func TestRootThread_Missing(t *testing.T) {
	doc, err := ParseDocument([]byte(`<html><body><p>No comments yet.</p></body></html>`))
	require.NoError(t, err)
	_, ok := RootThread(doc)
	assert.False(t, ok)
}
