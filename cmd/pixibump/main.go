package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prefix-dev/pixibump/internal/bump"
	"github.com/prefix-dev/pixibump/internal/cfg"
	"github.com/prefix-dev/pixibump/internal/gitcmd"
	"github.com/prefix-dev/pixibump/internal/githubclt"
	"github.com/prefix-dev/pixibump/internal/logfields"
	"github.com/prefix-dev/pixibump/internal/manifest"
)

const appName = "pixibump"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

const defConfigFile = ".pixibump.toml"

var config *cfg.Config

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught, terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

func mustParseCfg(path string, mustExist bool) *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return cfg.Default()
		}

		exitOnErr(fmt.Sprintf("could not open configuration file: %s", path), err)
	}
	defer file.Close()

	config, err := cfg.Load(file)
	if err != nil {
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", path), err)
	}

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stderr,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stderr"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config, verbose bool) {
	var logLevel zapcore.Level
	if verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s\n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		_ = logger.Sync()
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

// apiToken returns the bearer credential from the process environment.
// An empty result is not an error, the github client falls back to
// anonymous, rate-limited access.
func apiToken() string {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}

	return os.Getenv("GITHUB_TOKEN")
}

func newBumper(cmd *cli.Command) (*bump.Bumper, error) {
	dir := cmd.String("dir")
	token := apiToken()

	logger.Debug(
		"configuration loaded",
		logfields.Event("cfg_loaded"),
		zap.String("upstream_repository", config.UpstreamRepository),
		zap.String("downstream_repository", config.DownstreamRepository),
		zap.String("dependency", config.Dependency),
		zap.String("manifest_path", config.ManifestPath),
		zap.String("working_directory", dir),
		zap.String("github_api_token", hide(token)),
	)

	if token == "" {
		logger.Info(
			"no GH_TOKEN or GITHUB_TOKEN set, using anonymous github API access",
			logfields.Event("github_api_token_missing"),
		)
	}

	mutator := manifest.NewMutator(
		dir,
		config.ManifestPath,
		config.Dependency,
		config.FormatterCommand,
		config.LockCommand,
	)

	return bump.New(
		bump.Config{
			Dir:                  dir,
			UpstreamRepository:   config.UpstreamRepository,
			DownstreamRepository: config.DownstreamRepository,
			Dependency:           config.Dependency,
			ManifestPath:         config.ManifestPath,
			LockfilePath:         config.LockfilePath,
			BranchPrefix:         config.BranchPrefix,
			GitUserName:          config.GitUserName,
			GitUserEmail:         config.GitUserEmail,
		},
		githubclt.New(token),
		gitcmd.New(dir),
		mutator,
		os.Stdout,
	)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    appName,
		Version: Version,
		Usage:   "keep the pinned pixi dependency in sync with upstream releases",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable verbose logging",
				Sources: cli.EnvVars("PIXIBUMP_VERBOSE"),
			},
			&cli.StringFlag{
				Name:    "cfg-file",
				Aliases: []string{"c"},
				Usage:   "path to the pixibump configuration file",
				Value:   defConfigFile,
				Sources: cli.EnvVars("PIXIBUMP_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "root of the downstream working tree",
				Value: ".",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			_ = godotenv.Load()

			config = mustParseCfg(cmd.String("cfg-file"), cmd.IsSet("cfg-file"))
			mustInitLogger(config, cmd.Bool("verbose"))

			return ctx, nil
		},
		CommandNotFound: func(ctx context.Context, cmd *cli.Command, name string) {
			fmt.Fprintf(os.Stderr, "unknown command: %s\nUsage: %s [check|update|pr]\n", name, appName)
			os.Exit(2)
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.Exit(fmt.Sprintf("Usage: %s [check|update|pr]", appName), 2)
		},
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "report if a newer upstream release is available",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					bumper, err := newBumper(cmd)
					if err != nil {
						return err
					}

					return bumper.Check(ctx)
				},
			},
			{
				Name:  "update",
				Usage: "pin the manifest to the latest upstream release and refresh the lockfile",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					bumper, err := newBumper(cmd)
					if err != nil {
						return err
					}

					return bumper.Update(ctx)
				},
			},
			{
				Name:  "pr",
				Usage: "publish the pending manifest change as a pull request",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					bumper, err := newBumper(cmd)
					if err != nil {
						return err
					}

					return bumper.PublishPR(ctx)
				},
			},
		},
	}
}

func main() {
	defer panicHandler()

	goodbye.Notify(context.Background())

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err.Error())
		goodbye.Exit(context.Background(), 1)
	}

	goodbye.Exit(context.Background(), 0)
}
