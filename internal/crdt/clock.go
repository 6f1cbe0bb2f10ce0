package crdt

import (
	"math"
	"sync"
)

// LamportClock - логические часы Лампорта реплики документа.
// Выдают ID локальных операций и учитывают счетчики чужих операций,
// чтобы новая локальная операция была старше всего увиденного.
type LamportClock struct {
	nodeID  string     // идентификатор реплики (client_id)
	counter int64      // монотонно возрастающий счетчик
	mu      sync.Mutex // мьютекс для потокобезопасности
}

// NewLamportClock создает часы реплики nodeID.
func NewLamportClock(nodeID string) *LamportClock {
	return &LamportClock{nodeID: nodeID}
}

// Tick увеличивает счетчик и возвращает новое значение.
func (lc *LamportClock) Tick() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	// счетчик не переполняется: Witness не принимает значения выше MaxCounter
	if lc.counter < math.MaxInt64 {
		lc.counter++
	}
	return lc.counter
}

// Next возвращает идентификатор для новой локальной операции.
func (lc *LamportClock) Next() ID {
	return ID{Counter: lc.Tick(), Replica: lc.nodeID}
}

// Witness запоминает увиденное удаленное значение без продвижения счетчика.
// Следующий Tick гарантированно вернет значение больше remote.
func (lc *LamportClock) Witness(remote int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remote > lc.counter && remote <= MaxCounter {
		lc.counter = remote
	}
}
