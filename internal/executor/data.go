package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Easel/internal/domain"
)

// TextExecutor — текст, введённый пользователем в редакторе.
type TextExecutor struct{}

// NewTextExecutor создаёт исполнителя текстовых узлов.
func NewTextExecutor() *TextExecutor {
	return &TextExecutor{}
}

// Kind возвращает тип узла.
func (e *TextExecutor) Kind() domain.NodeKind {
	return domain.NodeKindText
}

// Execute возвращает текст из data узла.
func (e *TextExecutor) Execute(ctx context.Context, req *Request) (any, error) {
	text := GetDataString(req.Node.Data, "text")
	if text == "" {
		return nil, fmt.Errorf("%w: node %q has no text", ErrMissingInput, req.Node.ID)
	}
	return text, nil
}

// MediaExecutor — уже загруженный медиафайл (изображение или видео).
//
// Редактор кладёт в data узла URL загруженного файла. Пока загрузка
// не завершена, там лежит локальная ссылка blob: — такой узел
// выполнять нельзя.
type MediaExecutor struct {
	kind domain.NodeKind
}

// NewImageExecutor создаёт исполнителя узлов изображений.
func NewImageExecutor() *MediaExecutor {
	return &MediaExecutor{kind: domain.NodeKindImage}
}

// NewVideoExecutor создаёт исполнителя видеоузлов.
func NewVideoExecutor() *MediaExecutor {
	return &MediaExecutor{kind: domain.NodeKindVideo}
}

// Kind возвращает тип узла.
func (e *MediaExecutor) Kind() domain.NodeKind {
	return e.kind
}

// Execute возвращает URL медиафайла из data узла.
func (e *MediaExecutor) Execute(ctx context.Context, req *Request) (any, error) {
	url := GetDataString(req.Node.Data, "url")
	if url == "" {
		return nil, fmt.Errorf("%w: node %q has no uploaded file", ErrMissingInput, req.Node.ID)
	}
	if strings.HasPrefix(url, "blob:") {
		return nil, fmt.Errorf("%w: node %q upload is not finished", ErrMissingInput, req.Node.ID)
	}
	return url, nil
}
