package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"depthbook/config"
	"depthbook/domain/book"
	"depthbook/infra/outbox"
	"depthbook/infra/sink"
	"depthbook/jobs/broadcaster"
	"depthbook/service"
)

func main() {
	app := &cli.App{
		Name:  "depthbook",
		Usage: "rank-indexed price-level book",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Value: ".env",
				Usage: "path to env file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "feed",
				Usage:     "apply an instruction file (kind;rank;side;price;quantity per line) and print the resulting depth",
				ArgsUsage: "[file, or - for stdin]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "depth",
						Usage: "snapshot depth to print (0 = config default)",
					},
				},
				Action: runFeed,
			},
			{
				Name:   "serve",
				Usage:  "run until signaled, applying instructions from stdin as they arrive",
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// stack is everything one running book needs, wired in dependency
// order. Close tears it down in reverse.
type stack struct {
	cfg  config.Config
	disp *service.Dispatcher
	box  *outbox.Outbox
	bc   *broadcaster.Broadcaster
}

func openStack(ctx context.Context, cfg config.Config) (*stack, error) {
	var snk sink.Sink
	switch cfg.SinkKind {
	case "kafka":
		if !cfg.Broadcast() {
			return nil, fmt.Errorf("SINK_KIND=kafka but KAFKA_BROKERS is empty")
		}
		snk = sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		snk = sink.NewFileSink(cfg.SinkPath)
	}

	box, err := outbox.Open(cfg.OutboxDir)
	if err != nil {
		return nil, fmt.Errorf("outbox init failed: %w", err)
	}

	disp := service.NewDispatcher(book.NewLevelBook(), snk, box, log.StandardLogger())
	if err := disp.Start(); err != nil {
		_ = box.Close()
		return nil, err
	}

	s := &stack{cfg: cfg, disp: disp, box: box}

	if cfg.Broadcast() {
		bc, err := broadcaster.New(
			box,
			cfg.KafkaBrokers,
			cfg.KafkaTopic,
			cfg.BroadcastInterval,
			log.StandardLogger(),
		)
		if err != nil {
			log.WithError(err).Warn("broadcaster unavailable, outbox will accumulate")
		} else {
			s.bc = bc
			bc.Start(ctx)
		}
	}
	return s, nil
}

func (s *stack) Close() {
	if s.bc != nil {
		_ = s.bc.Close()
	}
	_ = s.disp.Close()
	_ = s.box.Close()
}

func runFeed(c *cli.Context) error {
	cfg := config.Load(c.String("env"))
	setupLogging(cfg)

	in := io.Reader(os.Stdin)
	if arg := c.Args().First(); arg != "" && arg != "-" {
		f, err := os.Open(arg)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	applied, rejected, err := applyFeed(s.disp, in)
	if err != nil {
		return err
	}

	depth := c.Int("depth")
	if depth < 1 {
		depth = cfg.SnapshotDepth
	}
	rows, err := s.disp.Snapshot(depth)
	if err != nil {
		return err
	}
	printDepth(os.Stdout, rows)

	log.Infof("applied=%d rejected=%d lastSeq=%d", applied, rejected, s.disp.Seq())
	return nil
}

func runServe(c *cli.Context) error {
	cfg := config.Load(c.String("env"))
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Info("serving, feed instructions on stdin")

	// The feed loop runs aside so a signal wins even while stdin is
	// quiet. A reader blocked mid-Scan is simply abandoned at exit.
	type feedResult struct {
		applied, rejected int
		err               error
	}
	done := make(chan feedResult, 1)
	go func() {
		applied, rejected, err := applyFeed(s.disp, os.Stdin)
		done <- feedResult{applied, rejected, err}
	}()

	var res feedResult
	select {
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	case res = <-done:
		if res.err != nil {
			return res.err
		}
		log.Info("input closed, shutting down")
	}

	rows, err := s.disp.Snapshot(cfg.SnapshotDepth)
	if err != nil {
		return err
	}
	printDepth(os.Stdout, rows)

	log.Infof("applied=%d rejected=%d lastSeq=%d", res.applied, res.rejected, s.disp.Seq())
	return nil
}

func setupLogging(cfg config.Config) {
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// applyFeed applies instruction lines from r until EOF. Bad lines are
// logged and counted, never fatal; blank lines are skipped.
func applyFeed(disp *service.Dispatcher, r io.Reader) (applied, rejected int, err error) {
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := scanner.Text()
		if line == "" {
			continue
		}

		instr, perr := service.ParseLine(line)
		if perr != nil {
			log.WithError(perr).Warnf("line %d rejected", lineno)
			rejected++
			continue
		}
		if aerr := disp.Apply(instr); aerr != nil {
			log.WithError(aerr).Warnf("line %d failed", lineno)
			rejected++
			continue
		}
		applied++
	}
	return applied, rejected, scanner.Err()
}

func printDepth(w io.Writer, rows []book.DepthRow) {
	fmt.Fprintf(w, "%-6s %14s %14s | %-14s %s\n", "rank", "bid qty", "bid price", "ask price", "ask qty")
	for i, row := range rows {
		fmt.Fprintf(w, "%-6d %14g %14g | %-14g %g\n",
			i+1, row.Bid.Quantity, row.Bid.Price, row.Ask.Price, row.Ask.Quantity)
	}
}
