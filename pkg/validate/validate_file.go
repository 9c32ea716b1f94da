package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/kafka-runner/internal/ports"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// DetectFormat - формат по расширению файла; неизвестное расширение - JSONL.
func DetectFormat(path string) InputFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatJSONL
}

// ValidateFile - проверяет выгрузку архива: JSON-массив записей или JSONL.
// Валидные записи пишутся в ow построчно (JSONL) независимо от входного формата.
func ValidateFile(ctx context.Context, v ports.PayloadValidator, path string, format InputFormat, ow io.Writer) (Report, error) {
	if format == FormatAuto {
		format = DetectFormat(path)
	}

	var check func(context.Context, ports.PayloadValidator, io.Reader, io.Writer) (Report, error)
	switch format {
	case FormatJSON:
		check = ValidateJSONArray
	case FormatJSONL:
		check = ValidateJSONLStream
	default:
		return Report{}, fmt.Errorf("unsupported format: %s", format)
	}

	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return check(ctx, v, file, ow)
}
