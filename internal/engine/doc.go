// Package engine выполняет runs: от claim до финального статуса.
//
// Жизненный цикл одного run:
//
//  1. Claim — PENDING → RUNNING условным UPDATE в БД. Благодаря ему
//     событие из очереди и поллинг не могут запустить run дважды.
//  2. Загрузка workflow, выбор узлов по scope, построение слоёв.
//  3. Выполнение слоёв строго по очереди; узлы внутри слоя — конкурентно
//     (errgroup с лимитом). Упавший узел не прерывает run: последующие
//     слои выполняются, но узел с обязательным входом от упавшего
//     источника падает сразу с ошибкой missing input.
//  4. Финализация: SUCCESS — все узлы успешны, PARTIAL — часть,
//     FAILED — ни одного успешного либо фатальная ошибка run.
//
// Состояние run (карты результатов, data узлов, записи NodeResult)
// меняет единственная горутина-рекордер: исполнители передают ей исходы
// через канал и сами хранилище не трогают. Ошибки узлов — данные,
// ошибки хранилища — фатальны для run.
//
// Движок получает runs двумя путями: событие run.requested из RabbitMQ
// (быстрый путь) и поллинг PENDING runs из БД (страховка на случай
// недоступности MQ).
package engine
