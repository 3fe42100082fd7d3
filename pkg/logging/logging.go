package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// New はコンソール向けの slog.Logger を作成します。verbose の場合は Debug レベルまで出力します。
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}

// Setup は標準エラー出力向けのロガーをデフォルトに設定します。
func Setup(verbose bool) *slog.Logger {
	logger := New(os.Stderr, verbose)
	slog.SetDefault(logger)
	return logger
}
