// Command chainmonitor drives the block-watching pipeline, exposing the
// `run` and `execute-monitor` subcommands from spec.md §6 via
// github.com/urfave/cli/v2 (a teacher dependency), mirroring the
// teacher's own cmd/* App-with-Commands layout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/thrasher-corp/chainmonitor/bootstrap"
	"github.com/thrasher-corp/chainmonitor/rpc"
)

const (
	exitOK              = 0
	exitStartupError    = 1
	exitEvaluationError = 2
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Value: ".",
	Usage: "path to the configuration root (config.json + networks/, monitors/, triggers/)",
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	app := &cli.App{
		Name:  "chainmonitor",
		Usage: "watch blockchain networks for configured monitor matches",
		Commands: []*cli.Command{
			runCommand(logger.Sugar()),
			executeMonitorCommand(logger.Sugar()),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to spec.md §6's exit code contract:
// 1 for startup/config failures, 2 for a single evaluation failure.
func exitCodeFor(err error) int {
	if evalErr, ok := err.(*evaluationError); ok {
		_ = evalErr
		return exitEvaluationError
	}
	return exitStartupError
}

// evaluationError marks a failure scoped to a single execute-monitor
// invocation rather than the process as a whole.
type evaluationError struct{ cause error }

func (e *evaluationError) Error() string { return e.cause.Error() }
func (e *evaluationError) Unwrap() error { return e.cause }

func runCommand(logger *zap.SugaredLogger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the block-watching pipeline and run until interrupted",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{Name: "control-addr", Usage: "address to serve the pause/resume/reload control API on (disabled when empty)"},
		},
		Action: func(c *cli.Context) error {
			monitor, err := bootstrap.Load(c.String("config"))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if addr := c.String("control-addr"); addr != "" {
				controlSrv := &http.Server{Addr: addr, Handler: rpc.NewServer(monitor)}
				go func() {
					if err := controlSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Errorw("chainmonitor: control server stopped", "error", err)
					}
				}()
				go func() {
					<-ctx.Done()
					_ = controlSrv.Close()
				}()
				logger.Infow("chainmonitor: control API listening", "addr", addr)
			}

			logger.Info("chainmonitor: starting pipeline")
			if err := monitor.Run(ctx); err != nil {
				return err
			}
			logger.Info("chainmonitor: shut down")
			return nil
		},
	}
}

func executeMonitorCommand(logger *zap.SugaredLogger) *cli.Command {
	return &cli.Command{
		Name:  "execute-monitor",
		Usage: "evaluate a single monitor against an explicit or latest finalized block",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{Name: "monitor", Required: true, Usage: "monitor name to evaluate"},
			&cli.StringFlag{Name: "network", Usage: "network slug to evaluate against (defaults to every network the monitor watches)"},
			&cli.Uint64Flag{Name: "block", Usage: "explicit block number (defaults to the latest finalized block)"},
		},
		Action: func(c *cli.Context) error {
			monitor, err := bootstrap.Load(c.String("config"))
			if err != nil {
				return err
			}

			var blockNumber *uint64
			if c.IsSet("block") {
				n := c.Uint64("block")
				blockNumber = &n
			}

			matches, err := monitor.ExecuteMonitor(c.Context, c.String("monitor"), nullableString(c.String("network")), blockNumber)
			if err != nil {
				return &evaluationError{cause: err}
			}

			out, err := json.Marshal(matches)
			if err != nil {
				return &evaluationError{cause: err}
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
