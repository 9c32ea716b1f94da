package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
	"github.com/Gunvolt24/kafka-runner/pkg/validate"
)

// ErrInvalidPayload - сообщение не проходит проверку содержимого.
var ErrInvalidPayload = validate.ErrInvalidPayload

var _ messaging.Processor[*domain.Message, domain.ArchiveResult] = (*Archiver)(nil)

// ArchiverConfig - параметры обработки.
type ArchiverConfig struct {
	// RequireJSON - значение сообщения должно быть валидным JSON.
	RequireJSON bool
	// MaxPayloadBytes - предельный размер значения; 0 - без ограничения.
	MaxPayloadBytes int
	// ProcessTimeout ограничивает одну попытку записи; 0 - 5s.
	ProcessTimeout time.Duration
}

// Archiver - прикладная логика: идемпотентно складывает сообщения в архив
// (без знаний о брокере и транспорте).
type Archiver struct {
	repo      ports.MessageRepository
	cache     ports.ArchiveCache
	validator ports.PayloadValidator
	log       ports.Logger
	cfg       ArchiverConfig
	now       func() time.Time
}

// NewArchiver - DI-конструктор.
func NewArchiver(
	repo ports.MessageRepository,
	cache ports.ArchiveCache,
	log ports.Logger,
	cfg ArchiverConfig,
) *Archiver {
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 5 * time.Second
	}
	validator := validate.NewPayloadValidator(validate.Rules{
		RequireJSON: cfg.RequireJSON,
		MaxBytes:    cfg.MaxPayloadBytes,
	})
	return &Archiver{repo: repo, cache: cache, validator: validator, log: log, cfg: cfg, now: time.Now}
}

// Process - сохранить сообщение в архив.
// Шаги:
//  1. проверка кэша недавно заархивированных (повторная доставка не идёт в БД);
//  2. проверка содержимого (ErrInvalidPayload);
//  3. запись с таймаутом на попытку, ON CONFLICT DO NOTHING;
//  4. запомнить координаты в кэше.
func (a *Archiver) Process(ctx context.Context, msg *domain.Message) (domain.ArchiveResult, error) {
	if msg == nil || msg.Topic == "" {
		metrics.ArchiveOps.WithLabelValues("invalid").Inc()
		return domain.ArchiveResult{}, fmt.Errorf("%w: message without topic", ErrInvalidPayload)
	}
	id := msg.ID()

	if a.cache.Seen(ctx, msg.Topic, msg.Partition, msg.Offset) {
		metrics.ArchiveOps.WithLabelValues("duplicate").Inc()
		a.log.Infof(ctx, "message already archived id=%s (cache)", id)
		return domain.ArchiveResult{ID: id, Inserted: false}, nil
	}

	if err := a.validator.Validate(ctx, msg); err != nil {
		metrics.ArchiveOps.WithLabelValues("invalid").Inc()
		a.log.Warnf(ctx, "payload rejected id=%s: %v", id, err)
		return domain.ArchiveResult{}, err
	}

	rec := *msg
	rec.ArchivedAt = a.now().UTC()

	saveCtx, cancel := context.WithTimeout(ctx, a.cfg.ProcessTimeout)
	defer cancel()

	start := time.Now()
	inserted, err := a.repo.Save(saveCtx, &rec)
	if err != nil {
		a.log.Errorf(ctx, "repo.Save failed id=%s err=%v", id, err)
		return domain.ArchiveResult{}, fmt.Errorf("failed to archive message %s: %w", id, err)
	}

	res := domain.ArchiveResult{ID: id, Inserted: inserted}
	if inserted {
		metrics.ArchiveOps.WithLabelValues("stored").Inc()
	} else {
		metrics.ArchiveOps.WithLabelValues("duplicate").Inc()
	}

	a.cache.Remember(ctx, msg.Topic, msg.Partition, msg.Offset)

	a.log.Infof(ctx, "message archived id=%s inserted=%t took=%s", id, inserted, time.Since(start))
	return res, nil
}
