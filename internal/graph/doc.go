// Package graph содержит статический анализ графа холста.
//
// Включает:
//   - validate.go — валидация связей и целых графов перед сохранением
//   - layers.go   — послойная топологическая сортировка (алгоритм Кана)
//   - scope.go    — выбор подмножества узлов для запуска (FULL/SINGLE/PARTIAL)
//   - inputs.go   — сборка входов узла по входящим связям
//
// Все функции чистые: граф передаётся по значению и не мутируется.
// Package graph отвечает за понимание структуры графа; выполнение
// узлов — забота package engine.
package graph
