package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/yumyai/orpheus/internal/util"
	"github.com/yumyai/orpheus/logger"
	"github.com/yumyai/orpheus/pkg/config"
	"github.com/yumyai/orpheus/pkg/pipeline"
	"github.com/yumyai/orpheus/pkg/render"
	"github.com/yumyai/orpheus/pkg/watch"
)

const dotEnvFile = ".env"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "orpheus",
		Version: version,
		Usage:   "Score assembled transcripts from ORF, BUSCO and homology evidence",
		Commands: []*cli.Command{
			scoreCmd(),
			watchCmd(),
			configCmd(),
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file (default $" + config.EnvConfig + ")"},
		&cli.StringFlag{Name: "work-dir", Aliases: []string{"w"}, Usage: "directory holding the upstream results"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "where exports are written (default: work dir)"},
		&cli.StringFlag{Name: "gff3", Usage: "TransDecoder GFF3 (default: discovered in work dir)"},
		&cli.StringFlag{Name: "sequences", Usage: "deduplicated transcript FASTA (default: <work dir>/cdhit_result.fasta)"},
		&cli.StringFlag{Name: "busco-dir", Usage: "BUSCO output directory (default: busco_after, then busco_before)"},
		&cli.StringFlag{Name: "homology", Usage: "BLASTP/DIAMOND outfmt 6 results (default: beside the GFF3)"},
		&cli.FloatFlag{Name: "threshold", Aliases: []string{"t"}, Usage: "minimum composite score to keep"},
		&cli.IntFlag{Name: "top-n", Aliases: []string{"n"}, Usage: "keep at most this many transcripts (0: no limit)"},
		&cli.StringFlag{Name: "weights", Usage: "ortholog,completeness,homology,length"},
		&cli.BoolFlag{Name: "sqlite", Usage: "also write results.db"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
}

// loadConfig layers defaults, the YAML file, the environment and flags.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		logger.Warn("Cannot load .env, using local environment", zap.Error(err))
	}

	path := cmd.String("config")
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.IsSet("work-dir") {
		c.IO.WorkDir = cmd.String("work-dir")
	}
	if cmd.IsSet("output-dir") {
		c.IO.OutputDir = cmd.String("output-dir")
	}
	if cmd.IsSet("gff3") {
		c.IO.GFF3 = cmd.String("gff3")
	}
	if cmd.IsSet("sequences") {
		c.IO.Sequences = cmd.String("sequences")
	}
	if cmd.IsSet("busco-dir") {
		c.IO.BuscoDir = cmd.String("busco-dir")
	}
	if cmd.IsSet("homology") {
		c.IO.Homology = cmd.String("homology")
	}
	if cmd.IsSet("threshold") {
		c.Scoring.Threshold = cmd.Float("threshold")
	}
	if cmd.IsSet("top-n") {
		c.Scoring.TopN = int(cmd.Int("top-n"))
	}
	if cmd.IsSet("weights") {
		w, err := config.ParseWeights(cmd.String("weights"))
		if err != nil {
			return nil, err
		}
		c.Scoring.Weights = w
	}
	if cmd.IsSet("sqlite") {
		c.Export.SQLite = cmd.Bool("sqlite")
	}
	if cmd.IsSet("log-level") {
		c.Logging.Level = cmd.String("log-level")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := logger.InitLogger(logger.ParseLevel(c.Logging.Level)); err != nil {
		return nil, err
	}
	if path != "" {
		logger.Info("Loaded config", zap.String("path", path))
	}
	return c, nil
}

func requestFromConfig(c *config.Config) pipeline.Request {
	a := pipeline.Discover(c.IO.WorkDir, pipeline.Artifacts{
		GFF3:        c.IO.GFF3,
		Sequences:   c.IO.Sequences,
		OrthologDir: c.IO.BuscoDir,
		Homology:    c.IO.Homology,
	})
	return pipeline.Request{
		GFF3Path:     a.GFF3,
		SequencePath: a.Sequences,
		OrthologDir:  a.OrthologDir,
		HomologyPath: a.Homology,
		OutputDir:    c.OutputDir(),
		Threshold:    c.Scoring.Threshold,
		TopN:         c.Scoring.TopN,
		Weights:      c.Scoring.Weights,
		ExportSQLite: c.Export.SQLite,
	}
}

func logOutcome(out *pipeline.Outcome) {
	logger.Info("Outputs",
		zap.String("run_id", out.RunID),
		zap.String("sequences", out.Outputs.Sequences),
		zap.String("score_table", out.Outputs.ScoreTable),
		zap.String("report", out.Outputs.Report),
		zap.String("results_db", out.Outputs.ResultsDB),
		zap.Stringer("weights", out.Weights),
	)
}

func scoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score, select and export high confidence transcripts",
		Flags: runFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := pipeline.Run(ctx, requestFromConfig(c))
			if err != nil {
				return err
			}
			logOutcome(out)
			return nil
		},
	}
}

func watchCmd() *cli.Command {
	flags := append(runFlags(),
		&cli.DurationFlag{Name: "debounce", Usage: "quiet period before re-scoring", Value: 2 * time.Second},
	)
	return &cli.Command{
		Name:  "watch",
		Usage: "Re-score whenever upstream results in the work dir change",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			w, err := watch.New(watch.DefaultExtensions, cmd.Duration("debounce"), watchIgnores(c)...)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer w.Close()

			if err := w.Add(c.IO.WorkDir); err != nil {
				return fmt.Errorf("watch %s: %w", c.IO.WorkDir, err)
			}

			rescore := func(ctx context.Context) {
				// Discovery runs again so newly finished steps are picked up.
				out, err := pipeline.Run(ctx, requestFromConfig(c))
				if err != nil {
					logger.Warn("Scoring run failed, waiting for changes", zap.Error(err))
					return
				}
				logOutcome(out)
			}

			rescore(ctx)
			logger.Info("Watching for changes", zap.String("dir", c.IO.WorkDir))
			return w.Run(ctx, func(ctx context.Context, _ []string) {
				rescore(ctx)
			})
		},
	}
}

// watchIgnores lists the paths a scoring run writes, so its own exports do
// not trigger another run.
func watchIgnores(c *config.Config) []string {
	outDir := c.OutputDir()
	if abs, err := filepath.Abs(outDir); err == nil {
		if work, err := filepath.Abs(c.IO.WorkDir); err == nil && abs != work {
			return []string{outDir}
		}
	}
	return []string{
		filepath.Join(outDir, pipeline.SequencesOutputFileName),
		filepath.Join(outDir, render.ScoreTableFileName),
		filepath.Join(outDir, render.IntegratedReportFileName),
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration files",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write a config file with default settings",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite an existing file"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						path = config.DefaultFileName
					}
					if util.FileExists(path) && !cmd.Bool("force") {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					}
					if err := config.Write(path, config.Defaults()); err != nil {
						return err
					}
					logger.Info("Wrote default config", zap.String("path", path))
					return nil
				},
			},
		},
	}
}
