package engine

import "errors"

// Ошибки движка.
var (
	// ErrRunNotFound — run не найден в БД.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotPending — run не в статусе PENDING: уже выполняется
	// или завершён. Событие и поллинг молча пропускают такой run.
	ErrRunNotPending = errors.New("run is not in PENDING status")
)
