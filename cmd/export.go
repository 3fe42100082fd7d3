package cmd

import (
	"context"
	"fmt"
	"log/slog"

	iohandler "github.com/shouni/go-utils/iohandler"
	"github.com/spf13/cobra"

	"github.com/shouni/fic-comment-pipe-go/pkg/builder"
	"github.com/shouni/fic-comment-pipe-go/pkg/render"
	"github.com/shouni/fic-comment-pipe-go/pkg/store"
	"github.com/shouni/fic-comment-pipe-go/pkg/worklist"
)

// --- メインロジック ---

// runExport は保存済みコメントをツリーに組み直し、指定形式の文字列にします。
func runExport(ctx context.Context, commentStore store.CommentStore, workArg string, format render.Format) (string, int, error) {
	work, err := worklist.ParseWorkID(workArg)
	if err != nil {
		return "", 0, err
	}

	comments, err := commentStore.ListByWork(ctx, work)
	if err != nil {
		return "", 0, fmt.Errorf("作品 %s のコメント取得に失敗しました: %w", work, err)
	}

	roots := render.BuildTree(comments)
	text, err := render.Render(roots, format)
	if err != nil {
		return "", 0, err
	}
	return text, render.Count(roots), nil
}

// --- サブコマンド定義 ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "保存済みのコメントをスレッド構造のまま出力します",
	Long:  `--work で指定した作品の保存済みコメントを親子関係に沿って組み直し、テキストまたはJSONで出力します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		workArg, _ := cmd.Flags().GetString("work")
		formatArg, _ := cmd.Flags().GetString("format")
		outputFile, _ := cmd.Flags().GetString("output-file")

		format, err := render.ParseFormat(formatArg)
		if err != nil {
			return err
		}
		opts, err := builderOptions()
		if err != nil {
			return err
		}

		ctx := context.Background()
		commentStore, closeStore, err := builder.BuildStore(ctx, opts)
		if err != nil {
			return err
		}
		defer closeStore()

		text, count, err := runExport(ctx, commentStore, workArg, format)
		if err != nil {
			return err
		}
		slog.Info("コメントツリーを出力します", slog.String("work_id", workArg), slog.Int("comments", count))

		return iohandler.WriteOutputString(outputFile, text)
	},
}

// --- フラグ初期化 ---

func initExportFlags() {
	exportCmd.Flags().StringP("work", "w", "", "出力する作品ID (必須)")
	exportCmd.Flags().StringP("format", "f", string(render.FormatText), "出力形式 (text|json)")
	exportCmd.Flags().StringP("output-file", "o", "", "出力先ファイル名。省略時は標準出力に出力。")

	exportCmd.MarkFlagRequired("work")
}
