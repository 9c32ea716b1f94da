package messaging

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DelaySequence - лениво потребляемая последовательность задержек между попытками.
// ok=false означает, что бюджет повторов исчерпан.
type DelaySequence interface {
	Next() (delay time.Duration, ok bool)
}

// RetryPolicy выдаёт новую последовательность на каждый item,
// поэтому общий счётчик повторов между сообщениями невозможен.
type RetryPolicy interface {
	Sequence() DelaySequence
}

// Delays - конечная политика из явного списка задержек.
// Длина списка и есть число повторов; пустой список = одна попытка без повторов.
func Delays(delays ...time.Duration) RetryPolicy {
	return fixedPolicy(append([]time.Duration(nil), delays...))
}

type fixedPolicy []time.Duration

func (p fixedPolicy) Sequence() DelaySequence {
	return &fixedSequence{delays: p}
}

type fixedSequence struct {
	delays []time.Duration
	pos    int
}

func (s *fixedSequence) Next() (time.Duration, bool) {
	if s.pos >= len(s.delays) {
		return 0, false
	}
	d := s.delays[s.pos]
	s.pos++
	return d, true
}

// ExponentialConfig - параметры экспоненциальной политики.
// Нулевые значения заменяются дефолтами.
type ExponentialConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
	// MaxRetries <= 0 и MaxElapsedTime == 0 дают бесконечную последовательность.
	MaxRetries     int
	MaxElapsedTime time.Duration
}

func (c *ExponentialConfig) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		c.RandomizationFactor = 0
	}
}

// ExponentialPolicy строит последовательность задержек на cenkalti/backoff.
func ExponentialPolicy(cfg ExponentialConfig) RetryPolicy {
	cfg.applyDefaults()
	return exponentialPolicy{cfg: cfg}
}

type exponentialPolicy struct {
	cfg ExponentialConfig
}

func (p exponentialPolicy) Sequence() DelaySequence {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialInterval
	bo.MaxInterval = p.cfg.MaxInterval
	bo.Multiplier = p.cfg.Multiplier
	bo.RandomizationFactor = p.cfg.RandomizationFactor
	bo.MaxElapsedTime = p.cfg.MaxElapsedTime
	bo.Reset()

	var b backoff.BackOff = bo
	if p.cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(bo, uint64(p.cfg.MaxRetries))
	}
	return backoffSequence{b: b}
}

type backoffSequence struct {
	b backoff.BackOff
}

func (s backoffSequence) Next() (time.Duration, bool) {
	d := s.b.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	return d, true
}
