// Package userlock сериализует изменяющие баланс операции одного пользователя,
// не мешая операциям разных пользователей выполняться параллельно.
package userlock

import (
	"context"
	"sync"
)

// entry - блокировка одного пользователя. refs считает держателя и всех
// ожидающих; меняется только под Table.mu.
type entry struct {
	sem  chan struct{}
	refs int
}

// Table создает записи лениво и удаляет их, когда refs возвращается к нулю
type Table struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

func NewTable() *Table {
	return &Table{entries: make(map[int64]*entry)}
}

// Handle - захваченная блокировка пользователя
type Handle struct {
	table  *Table
	userID int64
	e      *entry
	once   sync.Once
}

// Acquire блокируется, пока блокировку пользователя держит кто-то другой.
// Если ctx уже отменен или отменяется во время ожидания, возвращает ctx.Err()
// и ничего не оставляет в таблице.
func (t *Table) Acquire(ctx context.Context, userID int64) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		t.entries[userID] = e
	}
	e.refs++
	t.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return &Handle{table: t, userID: userID, e: e}, nil
	case <-ctx.Done():
		t.unref(userID, e)
		return nil, ctx.Err()
	}
}

// Release освобождает блокировку; повторный вызов ничего не делает
func (h *Handle) Release() {
	h.once.Do(func() {
		<-h.e.sem
		h.table.unref(h.userID, h.e)
	})
}

// UserID возвращает пользователя, чья блокировка захвачена
func (h *Handle) UserID() int64 {
	return h.userID
}

func (t *Table) unref(userID int64, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.entries, userID)
	}
}

// Do выполняет fn под блокировкой пользователя и освобождает ее на любом выходе
func (t *Table) Do(ctx context.Context, userID int64, fn func() error) error {
	h, err := t.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn()
}

// Len возвращает число пользователей, у которых есть держатель или ожидающие
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
