// sweeper is the moderation decision daemon: it wires the classification
// engine to its stores and exposes metrics. Platform transport (message
// consumption, declaration bus) is attached by the embedding deployment.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"

	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "sweeper",
		Usage:   "group-chat moderation decision daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for shared caches (eg: redis://localhost:6379/0), empty for in-process",
			EnvVars: []string{"SWEEPER_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"SWEEPER_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the decision service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, for metrics endpoint",
			Value:   ":3999",
			EnvVars: []string{"SWEEPER_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "tmp-dir",
			Usage:   "scratch directory for downloaded images",
			EnvVars: []string{"SWEEPER_TMP_DIR"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx, os.Stdout)
		srv, err := NewServer(Config{
			Logger:   logger,
			RedisURL: cctx.String("redis-url"),
			TmpDir:   cctx.String("tmp-dir"),
		})
		if err != nil {
			return fmt.Errorf("initializing server: %w", err)
		}
		return srv.RunMetrics(cctx.String("metrics-listen"))
	},
}

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "classify a text snippet against a default group config",
	ArgsUsage: "<text>",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "group",
			Usage: "group id to read config for",
			Value: -1,
		},
	},
	Action: func(cctx *cli.Context) error {
		text := strings.Join(cctx.Args().Slice(), " ")
		if text == "" {
			return fmt.Errorf("expected text to classify")
		}
		logger := configLogger(cctx, os.Stderr)
		srv, err := NewServer(Config{
			Logger:   logger,
			RedisURL: cctx.String("redis-url"),
		})
		if err != nil {
			return fmt.Errorf("initializing server: %w", err)
		}

		msg := &message.Message{
			ChatID: cctx.Int64("group"),
			ID:     1,
			From:   &message.User{ID: 1},
			Text:   text,
		}
		verdict := srv.engine.Classify(cctx.Context, msg)
		if verdict == policy.None {
			fmt.Println("allowed")
		} else {
			fmt.Println(string(verdict))
		}
		return nil
	},
}

func configLogger(cctx *cli.Context, writer *os.File) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
