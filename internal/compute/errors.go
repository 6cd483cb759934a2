package compute

import "errors"

// Ошибки провайдеров вычислений.
var (
	// ErrProviderNotFound — нет провайдера для данного типа узла.
	ErrProviderNotFound = errors.New("compute provider not found")

	// ErrBadPayload — в payload нет обязательного поля либо его тип неверен.
	ErrBadPayload = errors.New("bad compute payload")

	// ErrLLMRequest — chat completion завершился ошибкой.
	ErrLLMRequest = errors.New("llm request failed")

	// ErrMediaRequest — запрос к media-API завершился ошибкой.
	ErrMediaRequest = errors.New("media request failed")
)
