package cmd

import (
	"log/slog"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/fic-comment-pipe-go/pkg/builder"
	"github.com/shouni/fic-comment-pipe-go/pkg/config"
	"github.com/shouni/fic-comment-pipe-go/pkg/fetcher"
	"github.com/shouni/fic-comment-pipe-go/pkg/logging"
)

// --- グローバル定数 ---

const (
	appName            = "fic-comment-pipe"
	defaultTimeoutSec  = int(fetcher.DefaultTimeout / time.Second)
	defaultCooldownSec = int(fetcher.DefaultCooldown / time.Second) // 429 応答後の待機時間
	defaultIntervalSec = int(fetcher.DefaultInterval / time.Second)
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec  int    // --timeout HTTPリクエストのタイムアウト
	CooldownSec int    // --cooldown 429 応答後の待機時間
	IntervalSec int    // --interval リクエスト間の最小間隔
	BaseURL     string // --base-url 取得先サイトのURL
	Store       string // --store 保存先 (postgres|memory)
	DSN         string // --dsn Postgres 接続文字列
}

var Flags AppFlags // アプリケーション固有フラグにアクセスするためのグローバル変数

// env は initAppPreRunE で読み込んだ環境設定です。
var env config.Config

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&Flags.TimeoutSec, "timeout", defaultTimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	pf.IntVar(&Flags.CooldownSec, "cooldown", defaultCooldownSec, "429 (Too Many Requests) 応答後に待機する時間（秒）")
	pf.IntVar(&Flags.IntervalSec, "interval", defaultIntervalSec, "リクエスト間の最小間隔（秒）。0 で間隔制御なし")
	pf.StringVar(&Flags.BaseURL, "base-url", "", "取得先サイトのURL（省略時は "+config.EnvBaseURL+" または "+config.DefaultBaseURL+"）")
	pf.StringVar(&Flags.Store, "store", string(builder.StorePostgres), "コメントの保存先 (postgres|memory)")
	pf.StringVar(&Flags.DSN, "dsn", "", "Postgres の接続文字列（省略時は "+config.EnvDatabaseURL+"）")
}

// initAppPreRunE は、アプリケーション固有のPersistentPreRunEです。
// clibaseの共通処理の後に実行されます。
// NOTE: clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	logging.Setup(clibase.Flags.Verbose)
	env = config.Load()

	if Flags.BaseURL == "" {
		Flags.BaseURL = env.BaseURL
	}
	if Flags.DSN == "" {
		Flags.DSN = env.DatabaseURL
	}

	slog.Debug("設定を読み込みました",
		slog.String("base_url", Flags.BaseURL),
		slog.String("store", Flags.Store),
		slog.Int("timeout_sec", Flags.TimeoutSec),
		slog.Int("cooldown_sec", Flags.CooldownSec),
		slog.Int("interval_sec", Flags.IntervalSec),
	)
	return nil
}

// builderOptions はフラグと環境設定から builder.Options を作成します。
func builderOptions() (builder.Options, error) {
	kind, err := builder.ParseStoreKind(Flags.Store)
	if err != nil {
		return builder.Options{}, err
	}
	return builder.Options{
		BaseURL:   Flags.BaseURL,
		UserAgent: env.UserAgent,
		Timeout:   time.Duration(Flags.TimeoutSec) * time.Second,
		Cooldown:  time.Duration(Flags.CooldownSec) * time.Second,
		Interval:  time.Duration(Flags.IntervalSec) * time.Second,
		Store:     kind,
		DSN:       Flags.DSN,
	}, nil
}

// initCmdFlags は、すべてのサブコマンドのフラグを初期化します。
func initCmdFlags() {
	initCrawlFlags()
	initExportFlags()
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。
func Execute() {
	initCmdFlags()

	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		crawlCmd,
		exportCmd,
	)
}
