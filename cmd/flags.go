package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lambertxiao/go-fcp/pkg/config"
	"github.com/lambertxiao/go-fcp/pkg/logg"
	"github.com/lambertxiao/go-fcp/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	// global flags
	C_CONFIG            = "config"
	C_LEVEL             = "level"
	C_LOG_DIR           = "log_dir"
	C_LOG_MAX_AGE       = "log_max_age"
	C_LOG_ROTATION_TIME = "log_rotation_time"
	C_SYSLOG            = "syslog"
	C_METRICS_FILE      = "metrics_file"
	C_RETRY             = "retry"

	// write flags
	C_OFFSET    = "offset, o"
	C_BUFFER    = "buffer, b"
	C_PROTECTED = "protected, p"
	C_VERBOSE   = "verbose, v"
)

// flagName strips the short alias from a flag constant.
func flagName(f string) string {
	name, _, _ := strings.Cut(f, ",")
	return name
}

func versionString() string {
	return "GO_FCP Version: " + types.GO_FCP_VERSION + "\n" +
		"  Commit ID: " + types.COMMIT_ID + "\n" +
		"  Build: " + types.BUILD_TIME + "\n" +
		"  Go Version: " + types.GO_VERSION + "\n"
}

func NewApp() *cli.App {
	app := &cli.App{
		Name:        "go-fcp",
		HideHelp:    false,
		HideVersion: true,
		Version:     versionString(),
		Usage:       "copy a payload into FFS partition entries",
		UsageText:   "go-fcp [global options] write [options] <src> [type:]<target>:<name>",
		Writer:      os.Stdout,
		ErrWriter:   os.Stderr,
		Before:      setup,
		Commands: []cli.Command{
			writeCommand(),
			{
				Name:      "stats",
				Usage:     "show the metrics recorded by the last write",
				ArgsUsage: "[metrics file]",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						path = config.GetGConfig().MetricsFile
					}
					if path == "" {
						return fmt.Errorf("no metrics file given and %s is not configured", flagName(C_METRICS_FILE))
					}
					return ShowStats(path, os.Stdout, SupportANSIColor(os.Stdout.Fd()))
				},
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, c.App.Version)
					return nil
				},
			},
		},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  C_CONFIG,
				Usage: "Specify the yaml config file",
				Value: types.DEFAULT_CONFIG_FILE,
			},
			cli.StringFlag{
				Name:  C_LEVEL,
				Usage: "Set log level: error/warn/info/debug",
				Value: types.DEFAULT_LEVEL,
			},
			cli.StringFlag{
				Name:  C_LOG_DIR,
				Usage: "Set log dir",
				Value: "",
			},
			cli.DurationFlag{
				Name:  C_LOG_MAX_AGE,
				Usage: "Set log max age",
				Value: types.DEFAULT_LOG_MAX_AGE,
			},
			cli.DurationFlag{
				Name:  C_LOG_ROTATION_TIME,
				Usage: "Set log rotation time",
				Value: types.DEFAULT_LOG_ROTATION_TIME,
			},
			cli.BoolFlag{
				Name:  C_SYSLOG,
				Usage: "Send logs to syslog when no log dir is set",
			},
			cli.StringFlag{
				Name:  C_METRICS_FILE,
				Usage: "Write prometheus metrics of each run to this textfile",
				Value: "",
			},
			cli.IntFlag{
				Name:  C_RETRY,
				Value: types.DEFAULT_RETRY,
				Usage: "Number of times to retry a failed object storage request",
			},
		},
	}

	return app
}

// setup loads the configuration and brings up logging before any command
// runs.
func setup(c *cli.Context) error {
	cfg, err := PopulateConfig(c)
	if err != nil {
		return err
	}

	config.SetGConfig(cfg)
	logg.SetLevel(cfg.Log_level)
	if err := logg.InitLogHook(cfg.LogDir, cfg.LogMaxAge, cfg.LogRotationTime, cfg.Syslog); err != nil {
		return err
	}
	logg.InitLogger()

	if !cfg.ModifiedTime.IsZero() {
		logg.Dlog.Debugf("config %s modified at %s", cfg.ConfigFile, cfg.ModifiedTime.Format(time.RFC3339))
	}
	return nil
}

// PopulateConfig merges the command line with the config file. Flags given
// explicitly win over file values, file values win over flag defaults.
func PopulateConfig(c *cli.Context) (*config.FCPConfig, error) {
	cfg := &config.FCPConfig{
		ConfigFile: c.String(C_CONFIG),

		LogDir:          c.String(C_LOG_DIR),
		LogMaxAge:       c.Duration(C_LOG_MAX_AGE),
		LogRotationTime: c.Duration(C_LOG_ROTATION_TIME),
		Syslog:          c.Bool(C_SYSLOG),
		MetricsFile:     c.String(C_METRICS_FILE),
	}
	cfg.StorageConfig.Retry = c.Int(C_RETRY)

	fc, mtime, err := config.LoadFile(cfg.ConfigFile, c.IsSet(C_CONFIG))
	if err != nil {
		return cfg, err
	}

	levelStr := c.String(C_LEVEL)
	if fc != nil {
		cfg.ModifiedTime = mtime
		if err := updateConfig(c, cfg, fc); err != nil {
			return cfg, err
		}
		if !c.IsSet(C_LEVEL) && fc.Log_level != "" {
			levelStr = fc.Log_level
		}
	}

	switch levelStr {
	case "error":
		cfg.Log_level = logrus.ErrorLevel
	case "warn":
		cfg.Log_level = logrus.WarnLevel
	case "info":
		cfg.Log_level = logrus.InfoLevel
	case "debug":
		cfg.Log_level = logrus.DebugLevel
	default:
		return cfg, fmt.Errorf("invalid log level %q", levelStr)
	}

	if cfg.StorageConfig.Retry <= 0 {
		cfg.StorageConfig.Retry = 1
	}
	return cfg, nil
}

func updateConfig(c *cli.Context, conf *config.FCPConfig, fc *config.FileConfig) error {
	sc := &conf.StorageConfig
	sc.Endpoint = fc.Endpoint
	sc.AccessKey = fc.Access_key
	sc.SecretKey = fc.Secret_key
	sc.Secure = fc.Secure
	if !c.IsSet(C_RETRY) && fc.Retry != 0 {
		sc.Retry = fc.Retry
	}

	conf.Buffer = fc.Buffer

	if !c.IsSet(C_LOG_DIR) && fc.LogDir != "" {
		conf.LogDir = fc.LogDir
	}
	if !c.IsSet(C_SYSLOG) && fc.Syslog {
		conf.Syslog = true
	}
	if !c.IsSet(C_METRICS_FILE) && fc.MetricsFile != "" {
		conf.MetricsFile = fc.MetricsFile
	}

	if !c.IsSet(C_LOG_MAX_AGE) && fc.LogMaxAge != "" {
		maxAge, err := time.ParseDuration(fc.LogMaxAge)
		if err != nil {
			return fmt.Errorf("invalid value %s for log_max_age: %w", fc.LogMaxAge, err)
		}
		conf.LogMaxAge = maxAge
	}
	if !c.IsSet(C_LOG_ROTATION_TIME) && fc.LogRotationTime != "" {
		rotation, err := time.ParseDuration(fc.LogRotationTime)
		if err != nil {
			return fmt.Errorf("invalid value %s for log_rotation_time: %w", fc.LogRotationTime, err)
		}
		conf.LogRotationTime = rotation
	}
	return nil
}
