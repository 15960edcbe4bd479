// Command questlint loads a quest template file, validates it and prints a
// summary. It exits non-zero when the file does not load or has errors.
//
// Usage:
//
//	go run ./cmd/questlint -templates data/quests.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/udisondev/questd/internal/config"
	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/logging"
)

func main() {
	path := flag.String("templates", "data/quests.yaml", "quest template YAML file")
	verbose := flag.Bool("v", false, "log loader warnings")
	flag.Parse()

	level := "error"
	if *verbose {
		level = "debug"
	}
	logger, _ := logging.New(os.Stderr, level, config.LogFile{})
	slog.SetDefault(logger)

	store, err := data.LoadQuestTemplates(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "questlint: %v\n", err)
		os.Exit(1)
	}

	report := Lint(store)
	report.Print(os.Stdout)
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
