package validate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Gunvolt24/kafka-runner/internal/ports"
)

// Issue - невалидная запись: позиция во входе (номер строки JSONL или
// элемента массива, с 1), координаты, если запись удалось разобрать, и причина.
type Issue struct {
	Pos int
	ID  string
	Err error
}

func (i Issue) String() string {
	if i.ID == "" {
		return fmt.Sprintf("#%d: %v", i.Pos, i.Err)
	}
	return fmt.Sprintf("#%d %s: %v", i.Pos, i.ID, i.Err)
}

// Report - итог проверки выгрузки.
type Report struct {
	Valid  int
	Issues []Issue
}

func (r Report) Invalid() int { return len(r.Issues) }

func (r Report) Summary() string {
	return fmt.Sprintf("%d valid / %d invalid", r.Valid, r.Invalid())
}

// check разбирает одну запись, проверяет её правилами v и при успехе пишет
// компактной строкой в ow. Ошибка - только при сбое записи в ow.
func (r *Report) check(ctx context.Context, v ports.PayloadValidator, pos int, raw []byte, ow io.Writer) error {
	msg, err := DecodeRecord(raw)
	if err != nil {
		r.Issues = append(r.Issues, Issue{Pos: pos, Err: err})
		return nil
	}
	if err := v.Validate(ctx, msg); err != nil {
		r.Issues = append(r.Issues, Issue{Pos: pos, ID: msg.ID(), Err: err})
		return nil
	}

	var line bytes.Buffer
	if err := json.Compact(&line, raw); err != nil {
		return fmt.Errorf("compact record #%d: %w", pos, err)
	}
	line.WriteByte('\n')
	if _, err := ow.Write(line.Bytes()); err != nil {
		return fmt.Errorf("write record #%d: %w", pos, err)
	}
	r.Valid++
	return nil
}

// ValidateJSONLStream - проверяет JSONL-выгрузку архива построчно. Валидные записи
// пишутся в ow по одной на строку, невалидные попадают в Report.Issues с номером строки.
// Пустые строки пропускаются.
func ValidateJSONLStream(ctx context.Context, v ports.PayloadValidator, ir io.Reader, ow io.Writer) (Report, error) {
	var res Report

	scanner := bufio.NewScanner(ir)
	// запас на большие строки
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}
		if err := res.check(ctx, v, line, raw, ow); err != nil {
			return res, err
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan line %d: %w", line+1, err)
	}
	return res, nil
}

// ValidateJSONArray - то же для JSON-массива записей (как отдаёт GET /messages).
// Сломанная структура самого массива - ошибка, а не Issue.
func ValidateJSONArray(ctx context.Context, v ports.PayloadValidator, ir io.Reader, ow io.Writer) (Report, error) {
	var res Report

	dec := json.NewDecoder(ir)
	tok, err := dec.Token()
	if err != nil {
		return res, fmt.Errorf("read array: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return res, fmt.Errorf("read array: want '[', got %v", tok)
	}

	for pos := 1; dec.More(); pos++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return res, fmt.Errorf("read record #%d: %w", pos, err)
		}
		if err := res.check(ctx, v, pos, raw, ow); err != nil {
			return res, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return res, fmt.Errorf("read array end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return res, fmt.Errorf("read array: trailing data")
	}
	return res, nil
}
