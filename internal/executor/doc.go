// Package executor содержит исполнителей типов узлов.
//
// Каждый тип узла реализует интерфейс Executor и регистрируется
// в Registry. Типы данных (text, image, video) разрешаются синхронно
// из data узла; вычислительные типы (llm, crop, frames) собирают
// payload из входов и делегируют работу клиенту джоб (package jobs).
//
// Исполнители не имеют побочных эффектов на граф: единственный
// результат — возвращённое значение узла.
package executor
