package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v2"

	"github.com/Samoxive/modbot/common/llm"
	"github.com/Samoxive/modbot/common/logger"
	"github.com/Samoxive/modbot/core/config"
	"github.com/Samoxive/modbot/internal/classifier"
	"github.com/Samoxive/modbot/internal/eval"
)

func main() {
	app := &cli.App{
		Name:  "evaluate",
		Usage: "run the moderation classifier over a labelled dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dataset",
				Usage: "path to a JSON array of {content, expected_result}; the built-in dataset is used when empty",
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "override LLM_MODEL",
				EnvVars: []string{"EVAL_MODEL"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceTypeEvaluate)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if m := cctx.String("model"); m != "" {
		cfg.LLM.Model = m
	}

	logger.Setup(cfg)

	cases, err := loadCases(cctx.String("dataset"))
	if err != nil {
		return err
	}

	client, err := llm.New(llm.Config{
		Provider:   cfg.LLM.Provider,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("creating llm client: %w", err)
	}

	slog.InfoContext(ctx, "evaluating", "model", client.Model(), "cases", len(cases))

	summary, err := eval.Run(ctx, classifier.New(client, classifier.Config{Timeout: cfg.LLM.Timeout}), cases, os.Stdout)
	if err != nil {
		return err
	}
	if !summary.Passed() {
		return cli.Exit(fmt.Sprintf("%d mispredictions", summary.Mispredictions), 1)
	}
	return nil
}

func loadCases(path string) ([]eval.Case, error) {
	if path == "" {
		return eval.DefaultCases()
	}
	return eval.LoadCases(path)
}
