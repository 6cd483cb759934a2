// Package compute реализует синхронные провайдеры вычислений.
//
// Провайдер выполняет работу одного типа вычислительного узла:
//   - LLMProvider — chat completion через OpenAI-совместимый API;
//   - MediaProvider — кадрирование и извлечение кадров через media-API.
//
// Service — реестр провайдеров по типу узла. Один и тот же Service
// обслуживает оба пути выполнения: воркер вызывает его для джоб из
// очереди, движок — как fallback при недоступности бэкенда джоб.
// Семантика вычисления от пути не зависит.
//
// Payload приходит либо напрямую от исполнителя узла, либо после
// JSON round-trip через таблицу jobs, поэтому хелперы доступа к полям
// принимают оба представления (int и float64, []string и []any).
package compute
