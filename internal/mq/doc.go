// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - run.requested    — run ожидает выполнения
//   - job.ready        — джоба готова к выполнению
//   - job.completed    — джоба завершена
//
// Exchanges:
//   - easel.runs    — события runs
//   - easel.jobs    — события джоб
//   - easel.dlx     — dead letter exchange
//
// Очередь — ускоритель, а не источник истины: все события дублируются
// состоянием в БД, и каждый потребитель имеет polling fallback.
package mq
