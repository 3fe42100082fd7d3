package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shouni/fic-comment-pipe-go/pkg/builder"
	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
	"github.com/shouni/fic-comment-pipe-go/pkg/runner"
	"github.com/shouni/fic-comment-pipe-go/pkg/worklist"
)

// --- ロジック: 対象作品の決定 ---

// resolveWorks は引数・CSV・フィードのいずれかから対象の作品IDを決定します。
func resolveWorks(ctx context.Context, args []string, feedURL, restart string, feeds *worklist.FeedSource) ([]domain.WorkID, error) {
	switch {
	case feedURL != "":
		if len(args) > 0 {
			return nil, fmt.Errorf("--feed と作品IDは同時に指定できません")
		}
		ids, err := feeds.WorkIDs(ctx, feedURL)
		if err != nil {
			return nil, err
		}
		return worklist.StartFrom(ids, restart)
	case worklist.IsCSV(args):
		return worklist.LoadCSV(args[0], restart)
	default:
		ids, err := worklist.FromArgs(args)
		if err != nil {
			return nil, err
		}
		return worklist.StartFrom(ids, restart)
	}
}

// --- ロジック: 結果の出力 (I/O) ---

// printResults は、BatchRunner から受け取った結果をCLIに出力します。
func printResults(res *runner.BatchResult) {
	fmt.Println("\n--- クロール結果 ---")
	for i, r := range res.Results {
		if r.Err != nil {
			fmt.Printf("❌ [%d] 作品 %s\n     エラー: %v\n", i+1, r.WorkID, r.Err)
			continue
		}
		t := r.Report.Totals
		fmt.Printf("✅ [%d] 作品 %s (%d ページ)\n     保存 %d 件, 削除済み %d 件, 重複 %d 件, 展開 %d 件\n",
			i+1, r.WorkID, r.Report.TotalPages, t.Scraped, t.Deleted, t.Duplicates, t.Expanded)
	}
	for _, w := range res.Skipped {
		fmt.Printf("⏭  作品 %s (未着手)\n", w)
	}
	fmt.Println("-------------------------------")
	fmt.Printf("完了: 成功 %d 件, 失敗 %d 件, 未着手 %d 件\n", res.Succeeded(), len(res.Failed()), len(res.Skipped))
}

// --- サブコマンド定義 ---

var crawlCmd = &cobra.Command{
	Use:   "crawl [作品ID... | works.csv]",
	Short: "作品のコメントスレッドをすべて取得し、親子関係つきで保存します",
	Long: `作品IDのリスト、1列目に作品IDを持つCSVファイル、または --feed で指定した作品フィードから
対象を決め、各作品のコメントページを順に取得して保存します。
保存済みのコメントは読み飛ばすため、中断したクロールは同じコマンドで再開できます。`,

	RunE: func(cmd *cobra.Command, args []string) error {
		restart, _ := cmd.Flags().GetString("restart")
		page, _ := cmd.Flags().GetInt("page")
		feedURL, _ := cmd.Flags().GetString("feed")

		opts, err := builderOptions()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		runID := uuid.NewString()
		slog.SetDefault(slog.Default().With(slog.String("run_id", runID)))

		client := builder.BuildFetcher(opts)

		works, err := resolveWorks(ctx, args, feedURL, restart, worklist.NewFeedSource(client))
		if err != nil {
			return err
		}

		commentStore, closeStore, err := builder.BuildStore(ctx, opts)
		if err != nil {
			return err
		}
		defer closeStore()

		batch, err := builder.BuildBatchRunner(client, commentStore, opts.BaseURL)
		if err != nil {
			return err
		}

		slog.Info("クロールを開始します",
			slog.Int("works", len(works)),
			slog.String("store", string(opts.Store)),
		)

		res, runErr := batch.RunAll(ctx, works, page)
		printResults(res)

		if runErr != nil {
			return fmt.Errorf("クロールが中断されました: %w", runErr)
		}
		if failed := len(res.Failed()); failed > 0 {
			return fmt.Errorf("%d 件の作品でクロールに失敗しました", failed)
		}
		return nil
	},
}

// --- フラグ初期化 ---

func initCrawlFlags() {
	crawlCmd.Flags().String("restart", "", "この作品IDから処理を再開します（CSV・フィード・引数の一覧内）")
	crawlCmd.Flags().Int("page", 1, "最初の作品で再開するコメントページ番号。2件目以降は常に1ページ目から")
	crawlCmd.Flags().String("feed", "", "作品IDを抽出する作品フィード (Atom/RSS) のURL")
}
