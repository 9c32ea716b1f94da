package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Gunvolt24/kafka-runner/pkg/validate"
)

// CLI для офлайн-проверки выгрузок архива (JSON-массив из GET /messages или JSONL)
// теми же правилами, что и архиватор. Валидные записи пишутся в stdout (JSONL),
// отчёт по невалидным - в stderr с номером записи и координатами.
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	requireJSON := flag.Bool("require-json", true, "value must be valid JSON")
	requireKey := flag.Bool("require-key", false, "message key is required")
	maxBytes := flag.Int("max-bytes", 1<<20, "max value size in bytes, 0 - unlimited")
	flag.Parse()

	ctx := context.Background()
	validator := validate.NewPayloadValidator(validate.Rules{
		RequireJSON: *requireJSON,
		RequireKey:  *requireKey,
		MaxBytes:    *maxBytes,
	})

	format := validate.InputFormat(*formatStr)
	path := *inputPath
	if path == "" {
		path = "/dev/stdin"
	}

	report, err := validate.ValidateFile(ctx, validator, path, format, os.Stdout)
	for _, issue := range report.Issues {
		fmt.Fprintf(os.Stderr, "invalid record %s\n", issue)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation: %v (%s)\n", err, report.Summary())
		os.Exit(1)
	}
	if report.Invalid() > 0 {
		fmt.Fprintf(os.Stderr, "validation failed (%s)\n", report.Summary())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "validation ok (%s)\n", report.Summary())
}
