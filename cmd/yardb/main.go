// Command yardb runs the YarDB HTTP/OData daemon: it opens one database
// file under an exclusive advisory lock and serves the REST resource
// layer of §4.4 over it until interrupted.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"yardb/internal/concurrency"
	"yardb/internal/engine"
	"yardb/internal/rest"
)

const defaultPort = 2112

func main() {
	app := &cli.App{
		Name:      "yardb",
		Usage:     "single-file document database with a REST/OData front end",
		ArgsUsage: "[service_or_port]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clog", Usage: "log to standard error instead of a log file"},
			&cli.IntFlag{Name: "slog_level", Usage: "minimum log level (-1 debug .. 5 fatal)", Value: int(zapcore.InfoLevel)},
			&cli.StringFlag{Name: "file", Usage: "database file path", Value: "yardb.dat"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "yardb:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	port, err := resolvePort(c.Args().First())
	if err != nil {
		return err
	}

	logger := buildLogger(c.Bool("clog"), zapcore.Level(c.Int("slog_level")))
	defer logger.Sync()

	e, err := engine.Open(c.String("file"), logger, 0)
	if err != nil {
		return err
	}
	guard := concurrency.New(e)

	server := rest.NewServer(rest.Config{Port: port}, guard, logger)
	logger.Info("lifecycle", zap.String("event", "open"), zap.String("file", c.String("file")), zap.Int("port", port))
	if err := server.Start(); err != nil {
		return err
	}
	logger.Info("lifecycle", zap.String("event", "close"))
	return nil
}

// resolvePort parses the positional service_or_port argument (§6.3):
// numeric values are a TCP port directly, an empty argument falls back
// to defaultPort. Named services are not resolved against /etc/services
// on this platform-independent build; a non-numeric, non-empty argument
// is a fatal error.
func resolvePort(arg string) (int, error) {
	if arg == "" {
		return defaultPort, nil
	}
	port, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("service_or_port %q is not a numeric port", arg)
	}
	return port, nil
}

func buildLogger(toStderr bool, level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(cfg)

	var sink zapcore.WriteSyncer
	if toStderr {
		sink = zapcore.AddSync(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   "yardb.log",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
		})
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core)
}
