package jobs

import "errors"

// Ошибки клиента джоб.
var (
	// ErrJobFailed — джоба либо её fallback завершились с ошибкой.
	ErrJobFailed = errors.New("job failed")

	// ErrJobTimeout — джоба не достигла терминального статуса за
	// отведённое время. Триггерит fallback, наружу не отдаётся.
	ErrJobTimeout = errors.New("job timeout")

	// ErrBackendUnavailable — бэкенд джоб недоступен (submit не прошёл
	// либо опрос стабильно падает). Триггерит fallback.
	ErrBackendUnavailable = errors.New("job backend unavailable")
)
