package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — сохранённый документ холста.
//
// Workflow — это граф обработки, который пользователь собирает в редакторе:
// узлы (текст, медиа, LLM, кадрирование, извлечение кадров) и связи между
// их портами. Каждый запуск (Run) выполняет текущий граф целиком или
// выбранное подмножество узлов.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow, задаётся пользователем.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// Graph — узлы и связи (содержимое JSONB поля graph).
	Graph GraphSpec `json:"graph"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего сохранения из редактора.
	UpdatedAt time.Time `json:"updated_at"`
}
