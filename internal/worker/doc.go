// Package worker выполняет асинхронные джобы вычислительных узлов.
//
// # Обзор
//
// Worker — stateless демон, выполняющий джобы (jobs), которые движок
// ставит в очередь для вычислительных узлов (llm, crop, frames).
// Worker отвечает за:
//
//   - Получение джоб из очереди RabbitMQ jobs.ready (event-driven)
//   - Периодическую проверку QUEUED джоб в БД (polling fallback)
//   - Захват джобы условным UPDATE (QUEUED → RUNNING)
//   - Выполнение payload через реестр провайдеров вычислений
//   - Retry с exponential backoff для транзиентных ошибок
//   - Финализацию джобы (COMPLETED/FAILED) и публикацию job.completed
//
// Workers масштабируются горизонтально: несколько экземпляров
// потребляют из одной очереди, захват джобы атомарен на уровне БД.
//
// # Обработка джобы
//
//  1. Получение job_id (из очереди или polling)
//  2. Claim: условный UPDATE QUEUED → RUNNING; проигрыш гонки — скип
//  3. Выполнение через compute-провайдера на горутине ants-пула
//  4. Транзиентная ошибка → retry с backoff, пока есть попытки
//  5. Успех → MarkCompleted(output); неудача → MarkFailed(error)
//  6. Публикация job.completed (best effort: движок опрашивает БД)
//
// # Retry
//
// Retry выполняется в процессе (in-process), а не через requeue в
// RabbitMQ: это даёт точный контроль над backoff и подсчётом попыток.
// Ошибки формы payload (compute.ErrBadPayload) и отсутствующий
// провайдер не лечатся повтором и финализируют джобу сразу.
//
// Сообщения, которые не удаётся распарсить, уходят в DLQ (mq.ErrReject):
// их повторная доставка бессмысленна, а джоба, если она существует,
// будет подхвачена поллингом.
package worker
