package httpx

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrBadRequest - параметры запроса вне допустимых значений.
var ErrBadRequest = errors.New("bad request")

// maxTopicLen - предел длины имени топика в Kafka.
const maxTopicLen = 249

// PageRules - границы постраничной выборки архива.
// MaxOffset == 0 - offset не ограничен сверху.
type PageRules struct {
	DefaultLimit int
	MaxLimit     int
	MaxOffset    int
}

// Page - разобранные limit/offset.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage читает limit/offset из query. Отсутствующий limit берётся из правил,
// нечисловые и выходящие за границы значения - ErrBadRequest.
func ParsePage(c *gin.Context, rules PageRules) (Page, error) {
	p := Page{Limit: rules.DefaultLimit}

	if raw, ok := c.GetQuery("limit"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Page{}, fmt.Errorf("%w: limit %q is not a number", ErrBadRequest, raw)
		}
		if v < 1 || v > rules.MaxLimit {
			return Page{}, fmt.Errorf("%w: limit must be in [1, %d]", ErrBadRequest, rules.MaxLimit)
		}
		p.Limit = v
	}

	if raw, ok := c.GetQuery("offset"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Page{}, fmt.Errorf("%w: offset %q is not a number", ErrBadRequest, raw)
		}
		if v < 0 || (rules.MaxOffset > 0 && v > rules.MaxOffset) {
			return Page{}, fmt.Errorf("%w: offset must be in [0, %d]", ErrBadRequest, rules.MaxOffset)
		}
		p.Offset = v
	}

	return p, nil
}

// ValidateTopic - имя топика по правилам Kafka: 1..249 символов [a-zA-Z0-9._-], не "." и не "..".
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic is required", ErrBadRequest)
	}
	if len(topic) > maxTopicLen || topic == "." || topic == ".." {
		return fmt.Errorf("%w: invalid topic %q", ErrBadRequest, topic)
	}
	for i := 0; i < len(topic); i++ {
		ch := topic[i]
		ok := ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' ||
			ch == '.' || ch == '_' || ch == '-'
		if !ok {
			return fmt.Errorf("%w: invalid topic %q", ErrBadRequest, topic)
		}
	}
	return nil
}

// Coordinates - адрес сообщения в архиве.
type Coordinates struct {
	Topic     string
	Partition int
	Offset    int64
}

// ParseCoordinates читает :topic/:partition/:offset из пути.
func ParseCoordinates(c *gin.Context) (Coordinates, error) {
	topic := c.Param("topic")
	if err := ValidateTopic(topic); err != nil {
		return Coordinates{}, err
	}
	partition, err := strconv.ParseInt(c.Param("partition"), 10, 32)
	if err != nil || partition < 0 {
		return Coordinates{}, fmt.Errorf("%w: invalid partition %q", ErrBadRequest, c.Param("partition"))
	}
	offset, err := strconv.ParseInt(c.Param("offset"), 10, 64)
	if err != nil || offset < 0 {
		return Coordinates{}, fmt.Errorf("%w: invalid offset %q", ErrBadRequest, c.Param("offset"))
	}
	return Coordinates{Topic: topic, Partition: int(partition), Offset: offset}, nil
}
