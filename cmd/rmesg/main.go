package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/starlab-io/rmesg/internal/backend"
	"github.com/starlab-io/rmesg/internal/config"
	"github.com/starlab-io/rmesg/internal/logging"
	"github.com/starlab-io/rmesg/internal/output"
	"github.com/starlab-io/rmesg/internal/output/multi"
	"github.com/starlab-io/rmesg/internal/output/stdout"
	"github.com/starlab-io/rmesg/internal/output/webhook"
	"github.com/starlab-io/rmesg/internal/stream"

	// Register backend implementations.
	_ "github.com/starlab-io/rmesg/internal/backend/klog"
	_ "github.com/starlab-io/rmesg/internal/backend/kmsg"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rmesg: %v\n", err)
		return 1
	}

	// Flags default from config so env/file settings show up in -h and
	// explicit flags win.
	flagBackend := flag.String("b", cfg.Backend, "backend: auto, klog or kmsg")
	flagFollow := flag.Bool("f", cfg.Follow, "follow new messages as they arrive")
	flagRaw := flag.Bool("r", cfg.Raw, "print lines unparsed")
	flagFormat := flag.String("o", cfg.Output.Format, "output format: text or json")
	flagLevel := flag.String("log-level", cfg.LogLevel, "diagnostic log level")
	flagList := flag.Bool("list-backends", false, "list available backends and exit")
	flag.Parse()

	logging.Init(*flagFormat == "json", logging.ParseLevel(*flagLevel))

	if *flagList {
		for _, name := range backend.Names() {
			fmt.Println(name)
		}
		return 0
	}

	out := buildOutput(*flagFormat, cfg.Output.WebhookURL)
	defer func() {
		if err := out.Close(); err != nil {
			slog.Warn("closing output", "error", err)
		}
	}()

	r, err := backend.Open(*flagBackend, backend.Options{
		KmsgPath: cfg.KmsgPath,
		Follow:   *flagFollow,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rmesg: %v\n", err)
		return 1
	}

	coord := stream.New(r, stream.Config{
		Follow:       *flagFollow,
		Raw:          *flagRaw,
		PollInterval: cfg.PollInterval,
	})

	// Graceful shutdown: first signal cancels the stream, the coordinator
	// finishes the record in hand and releases the kernel handle.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Debug("shutting down", "signal", sig.String())
		cancel()
	}()

	for item := range coord.Items(ctx) {
		if item.Err != nil {
			fmt.Fprintf(os.Stderr, "rmesg: %v\n", item.Err)
			return 1
		}
		if err := out.Write(ctx, item); err != nil {
			slog.Warn("output write failed", "error", err)
		}
	}
	return 0
}

func buildOutput(format, webhookURL string) output.Output {
	console := stdout.New(os.Stdout, format)
	if webhookURL == "" {
		return console
	}
	return multi.New(console, webhook.New(webhookURL))
}
