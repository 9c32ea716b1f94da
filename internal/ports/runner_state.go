package ports

// RunnerState - состояние цикла потребления для readiness-проверки.
type RunnerState interface {
	Subscribed() bool
}
