package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
)

// Проверка, что PayloadValidator удовлетворяет интерфейсу порта.
var _ ports.PayloadValidator = (*PayloadValidator)(nil)

// ErrInvalidPayload - базовая (sentinel error) ошибка проверки сообщения.
var ErrInvalidPayload = errors.New("invalid payload")

// Rules - правила проверки содержимого.
type Rules struct {
	// RequireJSON - значение должно быть валидным JSON.
	RequireJSON bool
	// RequireKey - у сообщения должен быть ключ.
	RequireKey bool
	// MaxBytes - предельный размер значения; 0 - без ограничения.
	MaxBytes int
}

// PayloadValidator проверяет координаты и содержимое сообщения.
type PayloadValidator struct {
	rules Rules
}

// NewPayloadValidator - конструктор.
// Возвращает ErrInvalidPayload (с обёрнутой причиной) при любой проблеме.
func NewPayloadValidator(rules Rules) *PayloadValidator {
	return &PayloadValidator{rules: rules}
}

// Validate - проверяет сообщение целиком.
func (v *PayloadValidator) Validate(ctx context.Context, msg *domain.Message) error {
	if err := v.validateCoordinates(msg); err != nil {
		return err
	}
	if v.rules.RequireKey && len(msg.Key) == 0 {
		return fmt.Errorf("%w: key обязателен (%s)", ErrInvalidPayload, msg.ID())
	}
	if err := v.ValidateValue(ctx, msg.Value); err != nil {
		return fmt.Errorf("%w (%s)", err, msg.ID())
	}
	return nil
}

// ValidateValue - проверка одного значения без координат (для офлайн-проверки файлов).
func (v *PayloadValidator) ValidateValue(_ context.Context, value []byte) error {
	if v.rules.MaxBytes > 0 && len(value) > v.rules.MaxBytes {
		return fmt.Errorf("%w: value %d байт больше лимита %d", ErrInvalidPayload, len(value), v.rules.MaxBytes)
	}
	if v.rules.RequireJSON && !json.Valid(value) {
		return fmt.Errorf("%w: value не является валидным JSON", ErrInvalidPayload)
	}
	return nil
}

// validateCoordinates - topic/partition/offset.
func (v *PayloadValidator) validateCoordinates(msg *domain.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: сообщение не может быть nil", ErrInvalidPayload)
	}
	if msg.Topic == "" {
		return fmt.Errorf("%w: topic обязателен", ErrInvalidPayload)
	}
	if msg.Partition < 0 || msg.Offset < 0 {
		return fmt.Errorf("%w: координаты %s некорректны", ErrInvalidPayload, msg.ID())
	}
	return nil
}
