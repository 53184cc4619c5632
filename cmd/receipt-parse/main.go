// Command receipt-parse interprets recognized receipt text files and prints
// the structured receipts as JSON, one object per line in argument order.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/travel-inventory/internal/interpret"
)

type result struct {
	File    string                   `json:"file"`
	Receipt *interpret.ParsedReceipt `json:"receipt,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("receipt-parse")
	var (
		keywords     = fs.StringLong("keywords", "", "YAML file extending the receipt keyword tables")
		homeCurrency = fs.StringLong("home-currency", "", "Currency used when no marker is found")
		aiReplies    = fs.BoolLong("ai", "Files hold image-understanding JSON replies instead of OCR text")
		concurrency  = fs.IntLong("concurrency", runtime.NumCPU(), "Files interpreted at once")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TRAVEL_INVENTORY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no input files")
		os.Exit(1)
	}

	cfg, err := interpret.LoadConfig(*keywords)
	if err != nil {
		slog.Error("Failed to load keyword tables", "path", *keywords, "error", err)
		os.Exit(1)
	}
	interpreter := interpret.New(cfg, nil)

	results, err := parseFiles(context.Background(), interpreter, files, *homeCurrency, *aiReplies, *concurrency)
	if err != nil {
		slog.Error("Failed to parse receipts", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			slog.Error("Error encoding result", "file", r.File, "error", err)
			os.Exit(1)
		}
	}
	if failed > 0 {
		os.Exit(2)
	}
}

// parseFiles interprets every file with at most limit running at once. A file
// that cannot be read or decoded is reported in its result; only cancellation
// stops the batch.
func parseFiles(ctx context.Context, interpreter *interpret.Interpreter, files []string, homeCurrency string, ai bool, limit int) ([]result, error) {
	results := make([]result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = parseFile(interpreter, file, homeCurrency, ai)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseFile(interpreter *interpret.Interpreter, file, homeCurrency string, ai bool) result {
	data, err := os.ReadFile(file)
	if err != nil {
		return result{File: file, Error: fmt.Sprintf("reading file: %v", err)}
	}

	if !ai {
		return result{File: file, Receipt: interpreter.Interpret(string(data), homeCurrency)}
	}

	receipt, err := interpreter.DecodeAIReceipt(string(data), homeCurrency)
	if err != nil {
		return result{File: file, Error: err.Error()}
	}
	return result{File: file, Receipt: receipt}
}
