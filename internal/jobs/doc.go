// Package jobs реализует клиента асинхронных джоб с синхронным fallback.
//
// Вычислительные узлы делегируют работу сюда:
//   - Submit — джоба записывается в БД и публикуется в очередь jobs.ready;
//   - Poll — запись опрашивается с фиксированным интервалом до
//     терминального статуса либо до wall-clock таймаута;
//   - Fallback — при недоступности бэкенда, ошибке или таймауте та же
//     операция выполняется синхронно через провайдера вычислений.
//
// Асинхронный бэкенд — опциональный ускоритель, а не точка отказа:
// вызывающий код не знает, какой путь обслужил запрос.
package jobs
