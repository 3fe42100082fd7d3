// Package worklist はクロール対象の作品IDを集めます。
// 入力はコマンドライン引数、CSVファイル、作品フィードのいずれかです。
package worklist

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

var (
	// ErrNoWorks は対象の作品IDが1件も無いことを表します。
	ErrNoWorks = errors.New("no work ids")
	// ErrRestartNotFound は再開位置の作品IDが一覧に無いことを表します。
	ErrRestartNotFound = errors.New("restart work id not found")
)

var workIDPattern = regexp.MustCompile(`^\d+$`)

// IsCSV は引数が単一のCSVファイルを指しているかを判定します。
func IsCSV(args []string) bool {
	return len(args) == 1 && strings.HasSuffix(strings.ToLower(args[0]), ".csv")
}

// ParseWorkID は数字のみの作品IDを検証します。
func ParseWorkID(s string) (domain.WorkID, error) {
	s = strings.TrimSpace(s)
	if !workIDPattern.MatchString(s) {
		return "", fmt.Errorf("無効な作品IDです: %q", s)
	}
	return domain.WorkID(s), nil
}

// FromArgs はコマンドライン引数の作品IDを検証して返します。
func FromArgs(args []string) ([]domain.WorkID, error) {
	ids := make([]domain.WorkID, 0, len(args))
	for _, a := range args {
		id, err := ParseWorkID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoWorks
	}
	return dedupe(ids), nil
}

// StartFrom は restart と一致する作品以降を返します。restart が空なら ids をそのまま返します。
func StartFrom(ids []domain.WorkID, restart string) ([]domain.WorkID, error) {
	restart = strings.TrimSpace(restart)
	if restart == "" {
		return ids, nil
	}
	for i, id := range ids {
		if string(id) == restart {
			return ids[i:], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRestartNotFound, restart)
}

func dedupe(ids []domain.WorkID) []domain.WorkID {
	seen := make(map[domain.WorkID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
