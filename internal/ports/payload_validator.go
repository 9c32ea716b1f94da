package ports

import (
	"context"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
)

type PayloadValidator interface {
	Validate(ctx context.Context, msg *domain.Message) error
}
