package validate_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Gunvolt24/kafka-runner/pkg/validate"
)

func archiveRules() *validate.PayloadValidator {
	return validate.NewPayloadValidator(validate.Rules{RequireJSON: true, MaxBytes: 32})
}

// Невалидные строки попадают в отчёт с номером строки и координатами, валидные - в вывод.
func TestValidateJSONLStream_ReportsLineAndCoordinates(t *testing.T) {
	input := strings.Join([]string{
		`{"topic":"events","partition":0,"offset":1,"value":{"id":1}}`,
		`{"topic":"events","partition":0,"offset":`, // обрезанная строка
		``,
		`{"topic":"events","partition":2,"offset":7,"value":"` + strings.Repeat("x", 64) + `"}`,
		`{"topic":"","partition":0,"offset":3,"value":1}`,
		`{"topic":"events","partition":0,"offset":4,"value": [1, 2]}`,
	}, "\n")
	var out bytes.Buffer

	res, err := validate.ValidateJSONLStream(context.Background(), archiveRules(), strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid != 2 || res.Invalid() != 3 || res.Summary() != "2 valid / 3 invalid" {
		t.Fatalf("unexpected report: %+v", res)
	}

	want := []struct {
		pos int
		id  string
	}{{2, ""}, {4, "events/2/7"}, {5, "/0/3"}}
	for i, w := range want {
		got := res.Issues[i]
		if got.Pos != w.pos || got.ID != w.id || !errors.Is(got.Err, validate.ErrInvalidPayload) {
			t.Fatalf("issue %d: got %+v, want pos=%d id=%q", i, got, w.pos, w.id)
		}
	}
	if s := res.Issues[1].String(); !strings.HasPrefix(s, "#4 events/2/7: ") {
		t.Fatalf("unexpected issue text: %q", s)
	}

	wantOut := `{"topic":"events","partition":0,"offset":1,"value":{"id":1}}` + "\n" +
		`{"topic":"events","partition":0,"offset":4,"value":[1,2]}` + "\n"
	if out.String() != wantOut {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestValidateJSONLStream_LargeLine(t *testing.T) {
	v := validate.NewPayloadValidator(validate.Rules{RequireJSON: true})
	big := `{"topic":"events","partition":0,"offset":1,"value":"` + strings.Repeat("X", 200_000) + `"}` // > 64KB
	var out bytes.Buffer

	res, err := validate.ValidateJSONLStream(context.Background(), v, strings.NewReader(big+"\n"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid != 1 || res.Invalid() != 0 {
		t.Fatalf("unexpected report: %+v", res)
	}
}

func TestValidateJSONArray(t *testing.T) {
	input := `[
		{"id":"events/0/1","topic":"events","partition":0,"offset":1,"value":{"ok":true}},
		{"topic":"events","partition":-1,"offset":2,"value":1}
	]`
	var out bytes.Buffer

	res, err := validate.ValidateJSONArray(context.Background(), archiveRules(), strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid != 1 || res.Invalid() != 1 || res.Issues[0].Pos != 2 || res.Issues[0].ID != "events/-1/2" {
		t.Fatalf("unexpected report: %+v", res)
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Fatalf("want one output line, got %q", out.String())
	}
}

// Сломанная структура массива - ошибка, а не запись в отчёте.
func TestValidateJSONArray_Broken(t *testing.T) {
	for _, input := range []string{`{"topic":"events"}`, `[{"topic":"events"`, `[] []`} {
		if _, err := validate.ValidateJSONArray(context.Background(), archiveRules(), strings.NewReader(input), &bytes.Buffer{}); err == nil {
			t.Fatalf("%q: want error", input)
		}
	}
}
