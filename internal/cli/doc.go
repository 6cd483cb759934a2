// Package cli реализует инструмент командной строки Easel.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Easel API.
// Работает через HTTP, не импортирует внутренние пакеты системы
// (типы ответов продублированы в client.go).
// CLI используется для управления workflows, runs и schedules
// без запуска редактора.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Easel API. Инкапсулирует все HTTP-запросы,
// парсинг конвертов ответов (data, data+total, error)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: easel run list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow: list, create, get, update, delete
//   - run: list, start, get
//   - schedule: list, create, get, update, delete, enable, disable
//   - kinds: каталог типов узлов
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
