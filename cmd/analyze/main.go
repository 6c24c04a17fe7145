// analyze 從命令列分析食譜檔案，將結果以 JSON 輸出到 stdout
//
//	analyze [-lang ita] [-no-ai] [-pretty] file...
//	analyze -text - < ricetta.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-extractor/internal/app"
	"recipe-extractor/internal/core/pipeline"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

type options struct {
	lang    string
	noAI    bool
	pretty  bool
	text    string
	name    string
	timeout time.Duration
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.lang, "lang", "", "OCR 語言（預設使用設定值）")
	fs.BoolVar(&opts.noAI, "no-ai", false, "停用 AI 補全")
	fs.BoolVar(&opts.pretty, "pretty", false, "縮排輸出")
	fs.StringVar(&opts.text, "text", "", "直接分析文字；\"-\" 表示從 stdin 讀取")
	fs.StringVar(&opts.name, "name", "", "文件名稱，用於推測標題")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "整體逾時")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 && opts.text == "" {
		fmt.Fprintln(stderr, "usage: analyze [flags] file... | analyze -text -")
		fs.PrintDefaults()
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	common.InitConsoleLogger(cfg.LogLevel)
	defer common.Sync()

	doc := pipeline.Document{
		Paths: fs.Args(),
		Name:  opts.name,
		Lang:  opts.lang,
		NoAI:  opts.noAI,
	}
	if doc.Lang == "" {
		doc.Lang = cfg.OCR.Language
	}
	if opts.text == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "read stdin: %v\n", err)
			return 1
		}
		doc.Text = string(data)
	} else {
		doc.Text = opts.text
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	components, err := app.Build(ctx, cfg, app.Options{DisableAI: opts.noAI})
	if err != nil {
		common.LogError("Failed to build components", zap.Error(err))
		return 1
	}
	defer components.Close()

	res := components.Orchestrator.Run(ctx, doc)
	if err := writeResult(stdout, res, opts.pretty); err != nil {
		fmt.Fprintf(stderr, "write result: %v\n", err)
		return 1
	}
	if !res.OK {
		return 1
	}
	return 0
}

func writeResult(w io.Writer, res pipeline.Result, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = sonic.ConfigStd.MarshalIndent(res, "", "  ")
	} else {
		data, err = sonic.ConfigStd.Marshal(res)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
