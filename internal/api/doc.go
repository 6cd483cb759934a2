// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (хранилища, publisher, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — обработчики для /workflows и /node-kinds
//   - run_handler.go       — обработчики для /runs
//   - schedule_handler.go  — обработчики для /schedules
//
// API обслуживает редактор холста: CRUD workflows с проверкой графа,
// проверка связей на лету, запуск runs (FULL/SINGLE/PARTIAL) с защитой
// по Idempotency-Key, просмотр результатов узлов и управление
// расписаниями.
//
// Тела запросов и ответов — в camelCase, как их сериализует редактор.
// Query-параметры — в snake_case (workflow_id, status, limit, offset).
package api
