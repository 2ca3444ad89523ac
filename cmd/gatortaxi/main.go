package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/example/gator-taxi/internal/command"
	"github.com/example/gator-taxi/internal/logging"
	"github.com/example/gator-taxi/internal/registry"
)

type args struct {
	Input    string `arg:"positional,required" help:"file of ride commands, one per line"`
	Output   string `arg:"-o,--output" default:"output_file.txt" help:"where query results are written"`
	LogLevel string `arg:"--log-level,env:LOG_LEVEL" default:"warn" help:"debug, info, warn or error"`
}

func (args) Description() string {
	return "gatortaxi replays a ride command file against an in-memory ride registry."
}

func main() {
	var a args
	p := arg.MustParse(&a)
	os.Exit(run(p, a))
}

func run(p *arg.Parser, a args) int {
	logger := logging.NewLoggerTo(os.Stderr, a.LogLevel)

	in, err := os.Open(a.Input)
	if err != nil {
		p.WriteUsage(os.Stderr)
		fmt.Fprintf(os.Stderr, "error: cannot open %s: %v\n", a.Input, err)
		return 1
	}
	defer in.Close()

	out, err := os.Create(a.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot create %s: %v\n", a.Output, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &command.Runner{Registry: registry.New(nil, logger), Logger: logger}
	st, runErr := r.Run(ctx, in, out)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		logger.Error("run failed", "err", runErr)
		return 1
	}
	logger.Info("done", "lines", st.Lines, "skipped", st.Skipped, "halted", st.Halted)
	return 0
}
