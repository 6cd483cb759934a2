package worker

import "errors"

// Ошибки воркера.
var (
	// ErrJobNotFound — джоба не найдена в БД.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotQueued — джоба не в статусе QUEUED
	// (захвачена другим воркером либо уже завершена).
	ErrJobNotQueued = errors.New("job is not in QUEUED status")
)
