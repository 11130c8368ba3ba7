// Command drip is a terminal chat client for Ollama with a batching
// stream pipeline between the decoder and the UI.
//
// Usage:
//
//	drip [flags]
//
// Flags:
//
//	-url string           Ollama server URL (default: OLLAMA_HOST or http://localhost:11434)
//	-model string         Model name (required unless -list)
//	-think                Request thinking output from the model
//	-batch-size int       Maximum events per batch
//	-batch-delay duration Maximum wait before flushing a partial batch
//	-buffer int           Delivery queue capacity in batches (0 = unbounded)
//	-list                 List models available on the server and exit
//	-log string           Append structured logs to this file
//	-session string       Path to a transcript file to resume
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/driplabs/drip"
	bt "github.com/driplabs/drip/bubbletea"
	dripjson "github.com/driplabs/drip/json"
	"github.com/driplabs/drip/ollama"
	"github.com/driplabs/drip/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "drip: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		url         = flag.String("url", "", "Ollama server URL (default: OLLAMA_HOST or "+ollama.DefaultBaseURL+")")
		model       = flag.String("model", "", "Model name")
		think       = flag.Bool("think", false, "Request thinking output from the model")
		batchSize   = flag.Int("batch-size", stream.DefaultMaxBatchSize, "Maximum events per batch")
		batchDelay  = flag.Duration("batch-delay", stream.DefaultMaxBatchDelay, "Maximum wait before flushing a partial batch")
		buffer      = flag.Int("buffer", 0, "Delivery queue capacity in batches (0 = unbounded)")
		list        = flag.Bool("list", false, "List models available on the server and exit")
		logPath     = flag.String("log", "", "Append structured logs to this file")
		sessionPath = flag.String("session", "", "Path to a transcript file to resume")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log, closeLog, err := newLogger(*logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	client := ollama.New(
		ollama.WithBaseURL(resolveURL(*url)),
		ollama.WithAPIKey(os.Getenv("OLLAMA_API_KEY")),
		ollama.WithLogger(log),
	)

	if *list {
		return listModels(ctx, client)
	}

	if *model == "" {
		return fmt.Errorf("-model is required (use -list to see available models)")
	}

	transcript, err := loadOrCreateTranscript(*sessionPath)
	if err != nil {
		return err
	}

	cfg := bt.Config{
		Model: *model,
		Think: *think,
		Stream: stream.Options{
			MaxBatchSize:  *batchSize,
			MaxBatchDelay: *batchDelay,
			Capacity:      *buffer,
			Logger:        &log,
		},
	}

	tuiModel := bt.New(client, &transcript, cfg, drip.DefaultTheme())
	if err := bt.Run(ctx, tuiModel); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	// Save transcript on exit.
	if *sessionPath != "" {
		if err := dripjson.Save(*sessionPath, transcript); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
	} else if len(transcript.Messages) > 0 {
		// Auto-save to default location.
		savePath := defaultTranscriptPath(transcript.ID)
		if err := dripjson.Save(savePath, transcript); err != nil {
			return fmt.Errorf("auto-save transcript: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Transcript saved to %s\n", savePath)
	}

	return nil
}

func loadOrCreateTranscript(path string) (drip.Transcript, error) {
	if path == "" {
		return drip.NewTranscript(), nil
	}
	t, err := dripjson.Load(path)
	if err != nil {
		return drip.Transcript{}, fmt.Errorf("load transcript: %w", err)
	}
	return t, nil
}

func defaultTranscriptPath(id string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".drip", "transcripts", id+".json")
}

func resolveURL(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		return host
	}
	return ollama.DefaultBaseURL
}

// newLogger returns a file-backed logger, or a disabled one when no path
// is given. Logs cannot go to stderr while the TUI owns the terminal.
func newLogger(path string) (zerolog.Logger, func(), error) {
	if path == "" {
		return zerolog.Nop(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	log := zerolog.New(f).With().Timestamp().Logger()
	return log, func() { _ = f.Close() }, nil
}

func listModels(ctx context.Context, client *ollama.Client) error {
	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tPARAMS\tQUANT\tMODIFIED")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.Name,
			humanSize(m.Size),
			m.Details.ParameterSize,
			m.Details.QuantizationLevel,
			m.ModifiedAt,
		)
	}
	return w.Flush()
}

func humanSize(n int64) string {
	const gb = 1 << 30
	const mb = 1 << 20
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.0f MB", float64(n)/mb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
