package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

// ----------------------------------------------------------------
// バッチ実行 (BatchRunner) - 複数作品の順次処理
// ----------------------------------------------------------------

// WorkRunner は1作品分のクロールを実行します。Runner がこのインターフェースを実装します。
type WorkRunner interface {
	Run(ctx context.Context, work domain.WorkID, restartPage int) (*WorkReport, error)
}

// WorkResult は1作品分の結果です。
type WorkResult struct {
	WorkID domain.WorkID
	Report *WorkReport
	Err    error
}

// BatchResult は RunAll の実行結果を保持します。
type BatchResult struct {
	Results []WorkResult
	Skipped []domain.WorkID // キャンセルにより未着手の作品
}

// Succeeded は成功した作品数を返します。
func (b *BatchResult) Succeeded() int {
	ok, _ := classifyResults(b.Results)
	return len(ok)
}

// Failed は失敗した作品の結果を返します。
func (b *BatchResult) Failed() []WorkResult {
	_, failed := classifyResults(b.Results)
	return failed
}

// BatchRunner は作品を1件ずつ順に処理します。
// ある作品が失敗しても次の作品へ進みますが、コンテキストのキャンセルで即座に止まります。
type BatchRunner struct {
	runner WorkRunner
}

// NewBatchRunner は BatchRunner の新しいインスタンスを作成します。
func NewBatchRunner(runner WorkRunner) *BatchRunner {
	return &BatchRunner{runner: runner}
}

// RunAll は works を順に処理します。firstPage は最初の作品にのみ適用され、
// 2件目以降は常に 1 ページ目から開始します。
//
// 戻り値のエラーはキャンセル時のみ非 nil です。作品ごとの失敗は BatchResult に記録されます。
func (b *BatchRunner) RunAll(ctx context.Context, works []domain.WorkID, firstPage int) (*BatchResult, error) {
	result := &BatchResult{}
	page := firstPage

	for i, work := range works {
		if err := ctx.Err(); err != nil {
			result.Skipped = append(result.Skipped, works[i:]...)
			return result, err
		}

		slog.Info("作品のクロールを開始します",
			slog.String("work_id", string(work)),
			slog.Int("index", i+1),
			slog.Int("total", len(works)),
			slog.Int("start_page", max(page, 1)),
		)

		report, err := b.runner.Run(ctx, work, page)
		page = 1
		result.Results = append(result.Results, WorkResult{WorkID: work, Report: report, Err: err})

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Skipped = append(result.Skipped, works[i+1:]...)
				return result, err
			}
			slog.Error("作品のクロールに失敗しました。次の作品に進みます。",
				slog.String("work_id", string(work)),
				slog.Any("error", err),
			)
		}
	}

	slog.Info("クロール結果",
		slog.Int("successful", result.Succeeded()),
		slog.Int("failed", len(result.Failed())),
		slog.Int("total", len(works)),
	)
	return result, nil
}

// classifyResults は結果を成功と失敗に分類します。
func classifyResults(results []WorkResult) (succeeded []WorkResult, failed []WorkResult) {
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res)
		} else {
			succeeded = append(succeeded, res)
		}
	}
	return succeeded, failed
}
