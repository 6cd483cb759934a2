package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ PARTIAL (часть узлов успешна, часть — нет)
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run принят, но движок ещё не начал выполнение.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSuccess — все узлы выполнены успешно.
	RunStatusSuccess RunStatus = "SUCCESS"

	// RunStatusPartial — хотя бы один узел успешен и хотя бы один упал.
	RunStatusPartial RunStatus = "PARTIAL"

	// RunStatusFailed — ни одного успешного узла либо фатальная ошибка run.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Valid возвращает true для известного статуса run.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// ResultStatus — статус выполнения одного узла в рамках run.
//
// Жизненный цикл:
//
//	RUNNING → SUCCESS
//	        ↘ FAILED
type ResultStatus string

const (
	// ResultStatusRunning — узел выполняется.
	ResultStatusRunning ResultStatus = "RUNNING"

	// ResultStatusSuccess — узел выполнен, output записан.
	ResultStatusSuccess ResultStatus = "SUCCESS"

	// ResultStatusFailed — узел завершился с ошибкой.
	ResultStatusFailed ResultStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ResultStatus) IsTerminal() bool {
	return s == ResultStatusSuccess || s == ResultStatusFailed
}

// JobStatus — статус асинхронной джобы.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → COMPLETED
//	                 ↘ FAILED (после всех retry)
type JobStatus string

const (
	// JobStatusQueued — джоба в очереди, ожидает воркера.
	JobStatusQueued JobStatus = "QUEUED"

	// JobStatusRunning — джоба выполняется воркером.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusCompleted — джоба успешно завершена.
	JobStatusCompleted JobStatus = "COMPLETED"

	// JobStatusFailed — джоба завершилась с ошибкой.
	JobStatusFailed JobStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// NodeState — статус узла, который движок пишет прямо в data узла
// (поле "status"). Редактор показывает его на холсте.
type NodeState string

const (
	NodeStateIdle    NodeState = "idle"
	NodeStateRunning NodeState = "running"
	NodeStateSuccess NodeState = "success"
	NodeStateError   NodeState = "error"
)
