// Package scheduler превращает due расписания в PENDING runs.
//
// Scheduler периодически проверяет schedules с истекшим next_due_at,
// создаёт run с idempotency key, привязанным к due-времени, и
// сдвигает next_due_at по cron-выражению или интервалу.
//
// Структура:
//   - scheduler.go — цикл Run/Tick и обработка расписаний
//   - cron.go      — парсинг 5-польных cron-выражений и вычисление
//     следующего срабатывания с учётом timezone
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules: scheduleRepo,
//	    Runs:      runRepo,
//	    Workflows: workflowRepo,
//	    Publisher: publisher,                        // опционально
//	    Lock:      repo.NewAdvisoryLock(pool, key),  // опционально
//	    Logger:    logger,
//	})
//
//	go sched.Run(ctx)
//
// Leader Election:
//
// Каждый тик берёт advisory lock и отпускает его по завершении.
// Экземпляр, не получивший lock, пропускает тик. Misfire срабатывает
// один раз: следующее время считается от текущего момента, пропуски
// не навёрстываются.
package scheduler
