package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/kafka-runner/pkg/httpx"
)

var listRules = httpx.PageRules{DefaultLimit: 20, MaxLimit: 100, MaxOffset: 10000}

func queryCtx(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/messages?"+rawQuery, http.NoBody)
	return c
}

func pathCtx(topic, partition, offset string) *gin.Context {
	c := queryCtx("")
	c.Params = gin.Params{
		{Key: "topic", Value: topic},
		{Key: "partition", Value: partition},
		{Key: "offset", Value: offset},
	}
	return c
}

func TestParsePage_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rawQuery string
		want     httpx.Page
	}{
		{"defaults", "topic=events", httpx.Page{Limit: 20}},
		{"both", "limit=25&offset=10", httpx.Page{Limit: 25, Offset: 10}},
		{"bounds", "limit=100&offset=10000", httpx.Page{Limit: 100, Offset: 10000}},
		{"min limit", "limit=1", httpx.Page{Limit: 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := httpx.ParsePage(queryCtx(tt.rawQuery), listRules)
			if err != nil || got != tt.want {
				t.Fatalf("ParsePage(%q) = %+v, %v; want %+v", tt.rawQuery, got, err, tt.want)
			}
		})
	}
}

// Значения вне границ отклоняются, а не подрезаются.
func TestParsePage_Rejected(t *testing.T) {
	t.Parallel()

	for _, q := range []string{
		"limit=0", "limit=-5", "limit=101", "limit=foo", "limit=",
		"offset=-1", "offset=10001", "offset=bar",
	} {
		q := q
		t.Run(q, func(t *testing.T) {
			t.Parallel()
			if _, err := httpx.ParsePage(queryCtx(q), listRules); !errors.Is(err, httpx.ErrBadRequest) {
				t.Fatalf("ParsePage(%q): want ErrBadRequest, got %v", q, err)
			}
		})
	}
}

func TestParsePage_UnboundedOffset(t *testing.T) {
	rules := httpx.PageRules{DefaultLimit: 10, MaxLimit: 10}
	got, err := httpx.ParsePage(queryCtx("offset=123456789"), rules)
	if err != nil || got.Offset != 123456789 {
		t.Fatalf("got %+v err=%v", got, err)
	}
}

func TestValidateTopic(t *testing.T) {
	t.Parallel()

	for _, topic := range []string{"events", "events.parking", "a_b-C.9"} {
		if err := httpx.ValidateTopic(topic); err != nil {
			t.Fatalf("ValidateTopic(%q): %v", topic, err)
		}
	}
	for _, topic := range []string{"", ".", "..", "with space", "слово", "a/b", strings.Repeat("x", 250)} {
		if err := httpx.ValidateTopic(topic); !errors.Is(err, httpx.ErrBadRequest) {
			t.Fatalf("ValidateTopic(%q): want ErrBadRequest, got %v", topic, err)
		}
	}
}

func TestParseCoordinates(t *testing.T) {
	t.Parallel()

	got, err := httpx.ParseCoordinates(pathCtx("events", "3", "42"))
	if err != nil {
		t.Fatalf("ParseCoordinates: %v", err)
	}
	if got != (httpx.Coordinates{Topic: "events", Partition: 3, Offset: 42}) {
		t.Fatalf("unexpected coordinates: %+v", got)
	}

	bad := [][3]string{
		{"events", "x", "1"},
		{"events", "-1", "1"},
		{"events", "0", "y"},
		{"events", "0", "-1"},
		{"events", "4294967296", "0"},
		{"bad topic", "0", "0"},
	}
	for _, b := range bad {
		if _, err := httpx.ParseCoordinates(pathCtx(b[0], b[1], b[2])); !errors.Is(err, httpx.ErrBadRequest) {
			t.Fatalf("ParseCoordinates(%v): want ErrBadRequest, got %v", b, err)
		}
	}
}
