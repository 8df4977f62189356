package usecase

import "sync"

// tripLocks сериализует записи по одной поездке, не блокируя остальные.
// Запись в map живет только пока ее кто-то держит или ждет (refcount),
// поэтому map не растет с числом когда-либо виденных поездок.
type tripLocks struct {
	mu    sync.Mutex
	locks map[string]*tripLock
}

type tripLock struct {
	mu   sync.Mutex
	refs int
}

func newTripLocks() *tripLocks {
	return &tripLocks{locks: make(map[string]*tripLock)}
}

func (t *tripLocks) lock(id string) {
	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &tripLock{}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
}

func (t *tripLocks) unlock(id string) {
	t.mu.Lock()
	l := t.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(t.locks, id)
	}
	t.mu.Unlock()

	l.mu.Unlock()
}
