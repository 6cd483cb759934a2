package graph

import "errors"

// Ошибки валидации графа и связей.
var (
	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownKind — неизвестный тип узла.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrSelfLoop — связь замыкается на тот же узел.
	ErrSelfLoop = errors.New("connection forms a self-loop")

	// ErrUnknownNode — связь ссылается на несуществующий узел.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownHandle — связь ссылается на несуществующий порт.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrTypeMismatch — типы портов несовместимы.
	ErrTypeMismatch = errors.New("incompatible handle types")

	// ErrSourceKind — тип узла-источника не проходит ограничение порта.
	ErrSourceKind = errors.New("source kind not allowed for target handle")

	// ErrHandleOccupied — порт приёмника уже занят и не является fan-in.
	ErrHandleOccupied = errors.New("target handle already connected")

	// ErrCyclicConnection — связь замкнула бы цикл.
	ErrCyclicConnection = errors.New("connection would create a cycle")
)

// Ошибки выбора scope.
var (
	// ErrUnknownScope — неизвестное значение scope.
	ErrUnknownScope = errors.New("unknown run scope")

	// ErrNoNodeIDs — scope SINGLE/PARTIAL без списка узлов.
	ErrNoNodeIDs = errors.New("scope requires node IDs")
)

// ErrScheduling — слои покрыли не все узлы подмножества: в подграфе
// цикл, прошедший мимо валидатора. Фатальная ошибка, run прерывается.
var ErrScheduling = errors.New("internal scheduling error")

// ValidationError — отказ валидатора с контекстом связи.
type ValidationError struct {
	Source  string // ID узла-источника
	Target  string // ID узла-приёмника
	Message string // причина отказа, показывается в редакторе
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Source != "" || e.Target != "" {
		return "connection " + e.Source + " -> " + e.Target + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(source, target, message string, err error) *ValidationError {
	return &ValidationError{
		Source:  source,
		Target:  target,
		Message: message,
		Err:     err,
	}
}
