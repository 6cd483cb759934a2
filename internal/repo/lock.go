package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLock — межпроцессная блокировка на pg_try_advisory_lock.
//
// Лок живёт на выделенном соединении: advisory-локи в Postgres
// принадлежат сессии, поэтому захват и освобождение обязаны идти
// через одно и то же соединение, а не через пул.
type AdvisoryLock struct {
	pool *pgxpool.Pool
	key  int64
}

// NewAdvisoryLock создаёт блокировку с заданным ключом.
func NewAdvisoryLock(pool *pgxpool.Pool, key int64) *AdvisoryLock {
	return &AdvisoryLock{pool: pool, key: key}
}

// TryAcquire пытается захватить блокировку без ожидания.
//
// При успехе возвращает release-функцию, снимающую лок и возвращающую
// соединение в пул. Если лок держит другой процесс — ok=false.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (release func(), ok bool, err error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire conn: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		// Unlock строго на том же соединении. Если он не прошёл,
		// закрываем соединение: лок снимется вместе с сессией.
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
			conn.Conn().Close(context.Background())
		}
		conn.Release()
	}
	return release, true, nil
}
