// Command checker compares every .txt file in a directory and prints the pairwise similarity table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RishiKendai/textguard/internal/config"
	"github.com/RishiKendai/textguard/internal/logger"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

func main() {
	dir := flag.String("dir", "submissions", "Directory containing .txt submissions")
	method := flag.String("method", string(plagiarism.MethodWordBased), "Scoring method: word_based, char_based or line_based")
	output := flag.String("output", "", "Directory to write the JSON report to (no report when empty)")
	engineConfig := flag.String("config", "", "Engine options YAML file")
	workers := flag.Int("workers", 0, "Worker goroutines for scoring (0 scores on one goroutine)")
	encrypt := flag.Bool("encrypt", false, "Round-trip submissions through the document vault before comparing")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	logger.Init(*logLevel, "console")
	if *noColor {
		color.NoColor = true
	}

	if err := run(*dir, *method, *output, *engineConfig, *workers, *encrypt); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Plagiarism detection failed: %v\n", err)
		os.Exit(1)
	}
}

func run(dir, method, output, engineConfig string, workers int, encrypt bool) error {
	m := plagiarism.Method(method)
	if !m.Valid() {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Unknown method %q, using %s\n", method, plagiarism.MethodWordBased)
		m = plagiarism.MethodWordBased
	}

	opts := plagiarism.DefaultOptions()
	if engineConfig != "" {
		loaded, err := config.LoadEngineOptions(engineConfig)
		if err != nil {
			return err
		}
		opts = loaded
	}

	texts, err := loadDirectory(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Comparing %d files in %s (method: %s)\n", len(texts), dir, m)

	ctx := context.Background()
	var pool *plagiarism.WorkerPool
	if workers > 0 {
		pool = plagiarism.NewWorkerPool(ctx, workers)
		defer pool.Close()
	}

	comparator := plagiarism.NewComparator(opts, pool)
	var report *plagiarism.Report
	if encrypt {
		var key []byte
		if key, err = vaultKey(); err != nil {
			return err
		}
		report, err = compareSealed(ctx, comparator, texts, m, key)
	} else {
		report, err = comparator.Compare(ctx, texts, m)
	}
	if err != nil {
		return err
	}

	fmt.Print(formatReport(report, opts.Thresholds))

	if output != "" {
		path, err := writeReport(report, output, time.Now())
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("Report saved to %s\n", path)
	}

	return nil
}

// loadDirectory reads every .txt file in dir keyed by file name
func loadDirectory(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	texts := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable file")
			continue
		}
		texts[entry.Name()] = string(data)
	}

	if len(texts) < 2 {
		return nil, fmt.Errorf("%w: found %d .txt files in %s", plagiarism.ErrInsufficientDocuments, len(texts), dir)
	}
	return texts, nil
}
