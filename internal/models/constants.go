package models

const (
	// BusinessStartHour is the earliest hour a booking may start.
	BusinessStartHour = 6

	// BusinessEndHour is the latest hour a booking may start (inclusive).
	BusinessEndHour = 21

	// MaxOccurrences caps the AfterCount termination of a series.
	MaxOccurrences = 365
)

// QuarterMinutes are the start minutes offered by the booking form.
var QuarterMinutes = []int{0, 15, 30, 45}

const (
	// DefaultDraftTTL время жизни черновика в Redis
	DefaultDraftTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// DraftRateLimit количество изменений черновика в окне
	DraftRateLimit = 60

	// DraftRateWindow окно ограничения частоты изменений
	DraftRateWindow = 60 // 1 минута в секундах

	// DirectoryCacheTTL время жизни кэша справочников в памяти
	DirectoryCacheTTL = 5 * 60 // 5 минут в секундах
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)
