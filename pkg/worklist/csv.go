package worklist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

// FromCSV は1列目に作品IDを持つCSVを読み込みます。
// 1列目が数字でない行 (ヘッダーなど) は読み飛ばします。
func FromCSV(r io.Reader) ([]domain.WorkID, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var ids []domain.WorkID
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSVの読み込みに失敗しました: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		id, err := ParseWorkID(record[0])
		if err != nil {
			slog.Debug("作品IDでない行を読み飛ばしました", slog.Int("line", line), slog.String("value", record[0]))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoWorks
	}
	return dedupe(ids), nil
}

// LoadCSV は path のCSVを読み込み、restart の作品以降を返します。
func LoadCSV(path, restart string) ([]domain.WorkID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSVファイルを開けません: %w", err)
	}
	defer f.Close()

	ids, err := FromCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return StartFrom(ids, restart)
}
