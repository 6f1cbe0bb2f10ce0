// Package outbox отправляет накопленные записи очереди синхронизации
// в удаленное хранилище.
package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/models"
)

// EntrySender отправляет одну запись очереди
type EntrySender interface {
	Send(ctx context.Context, entry *models.QueueEntry) error
}

// OnlineChecker сообщает текущее состояние соединения
type OnlineChecker interface {
	Online() bool
}

// State - состояние цикла обработки
type State int

const (
	StateStopped State = iota
	StateRunning
	StateIdleBackoff
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateIdleBackoff:
		return "idle-backoff"
	}
	return "unknown"
}

// Config - параметры цикла
type Config struct {
	BaseInterval time.Duration // начальный период опроса
	MaxInterval  time.Duration // потолок периода при backoff
	BackoffAfter int           // пустых тиков подряд до увеличения периода
	ParkAfter    int           // пустых тиков подряд до остановки цикла
	Debounce     time.Duration // окно схлопывания переключений соединения
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		BaseInterval: 5 * time.Second,
		MaxInterval:  60 * time.Second,
		BackoffAfter: 3,
		ParkAfter:    12,
		Debounce:     500 * time.Millisecond,
	}
}

// TickResult - итог одного тика
type TickResult struct {
	Found      int // записей в очереди на начало тика
	Sent       int // подтвержденных отправок
	Failed     int // списков, обработка которых прервана ошибкой
	Superseded int // удаленных отмененных записей
	Remaining  int // записей в очереди после тика
	Skipped    bool
}

// Processor - фоновый цикл отправки очереди.
//
// Переходы: stopped -> running (Wake при непустой очереди или появление сети),
// running -> stopped (очередь опустела), running -> idle-backoff (пустые тики
// подряд), idle-backoff -> stopped (слишком много пустых тиков).
type Processor struct {
	queue  storage.QueueStorage
	sender EntrySender
	conn   OnlineChecker
	logger *slog.Logger

	wake     chan struct{}
	debounce *time.Timer

	cfg        Config
	state      State
	interval   time.Duration
	emptyTicks int
	lastOnline bool

	tickMu sync.Mutex // один тик за раз
	mu     sync.Mutex
}

// NewProcessor создает остановленный процессор.
func NewProcessor(queue storage.QueueStorage, sender EntrySender, conn OnlineChecker, cfg Config, logger *slog.Logger) *Processor {
	return &Processor{
		queue:    queue,
		sender:   sender,
		conn:     conn,
		cfg:      cfg,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		state:    StateStopped,
		interval: cfg.BaseInterval,
	}
}

// State возвращает текущее состояние цикла.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Interval возвращает текущий период опроса.
func (p *Processor) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.interval
}

// Wake сигнализирует о новой записи в очереди. Не блокируется.
func (p *Processor) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// HandleConnectionChange принимает переход соединения. Серия переключений
// в пределах окна Debounce схлопывается в одно решение по последнему значению.
func (p *Processor) HandleConnectionChange(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastOnline = online
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.cfg.Debounce, p.applyConnectionChange)
}

func (p *Processor) applyConnectionChange() {
	p.mu.Lock()
	online := p.lastOnline
	if !online {
		p.state = StateStopped
	}
	p.mu.Unlock()

	if online {
		p.logger.Debug("Connection restored, waking outbox")
		p.Wake()
		return
	}
	p.logger.Debug("Connection lost, outbox paused")
}

// Run выполняет цикл до отмены ctx.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("Outbox processor started")
	defer func() {
		p.mu.Lock()
		if p.debounce != nil {
			p.debounce.Stop()
		}
		p.state = StateStopped
		p.mu.Unlock()
		p.logger.Info("Outbox processor stopped")
	}()

	for {
		p.mu.Lock()
		active := p.state != StateStopped
		interval := p.interval
		p.mu.Unlock()

		var tick <-chan time.Time
		var timer *time.Timer
		if active {
			timer = time.NewTimer(interval)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-p.wake:
			if timer != nil {
				timer.Stop()
			}
			p.activate(ctx)
		case <-tick:
			if _, err := p.Tick(ctx); err != nil {
				p.logger.Warn("Outbox tick failed", "error", err)
			}
		}
	}
}

// activate - внешний триггер: свежая проверка очереди и немедленный тик,
// если есть работа.
func (p *Processor) activate(ctx context.Context) {
	if !p.conn.Online() {
		return
	}

	entries, err := p.queue.GetAllQueueEntries(ctx)
	if err != nil {
		p.logger.Warn("Failed to read sync queue", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	p.mu.Lock()
	p.state = StateRunning
	p.interval = p.cfg.BaseInterval
	p.emptyTicks = 0
	p.mu.Unlock()

	if _, err := p.Tick(ctx); err != nil {
		p.logger.Warn("Outbox tick failed", "error", err)
	}
}

// Tick выполняет один проход по очереди.
func (p *Processor) Tick(ctx context.Context) (TickResult, error) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	var result TickResult

	if !p.conn.Online() {
		result.Skipped = true
		return result, nil
	}

	entries, err := p.queue.GetAllQueueEntries(ctx)
	if err != nil {
		return result, err
	}
	result.Found = len(entries)

	if len(entries) == 0 {
		p.recordEmptyTick()
		return result, nil
	}

	for _, batch := range Plan(entries) {
		p.sendBatch(ctx, batch, &result)
	}

	remaining, err := p.queue.GetAllQueueEntries(ctx)
	if err != nil {
		return result, err
	}
	result.Remaining = len(remaining)

	p.recordWork(result)

	p.logger.Info("Outbox tick completed",
		"found", result.Found,
		"sent", result.Sent,
		"superseded", result.Superseded,
		"failed_lists", result.Failed,
		"remaining", result.Remaining)

	return result, nil
}

func (p *Processor) sendBatch(ctx context.Context, batch Batch, result *TickResult) {
	for _, entry := range batch.Send {
		if err := p.sender.Send(ctx, entry); err != nil {
			// Не переупорядочиваем вокруг ошибки: остаток списка ждет следующего тика
			p.logger.Warn("Failed to send queue entry",
				"list_id", batch.ListID,
				"entry_id", entry.ID,
				"operation", entry.OperationType,
				"error", err)
			result.Failed++
			return
		}

		if err := p.queue.DeleteQueueEntry(ctx, entry.ID); err != nil {
			p.logger.Error("Failed to remove sent queue entry", "entry_id", entry.ID, "error", err)
			result.Failed++
			return
		}
		result.Sent++

		if entry.OperationType == models.OperationListDelete {
			for _, superseded := range batch.Superseded {
				if err := p.queue.DeleteQueueEntry(ctx, superseded.ID); err != nil {
					p.logger.Error("Failed to remove superseded entry", "entry_id", superseded.ID, "error", err)
					continue
				}
				result.Superseded++
			}
		}
	}
}

func (p *Processor) recordEmptyTick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	// ручной тик остановленного цикла не запускает backoff
	if p.state == StateStopped {
		return
	}

	p.emptyTicks++
	switch {
	case p.emptyTicks >= p.cfg.ParkAfter:
		p.state = StateStopped
		p.interval = p.cfg.BaseInterval
		p.logger.Debug("Outbox parked after idle ticks", "empty_ticks", p.emptyTicks)
	case p.emptyTicks >= p.cfg.BackoffAfter:
		p.state = StateIdleBackoff
		p.interval = p.backoff(p.interval)
	}
}

func (p *Processor) recordWork(result TickResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.emptyTicks = 0
	switch {
	case result.Remaining == 0:
		p.state = StateStopped
		p.interval = p.cfg.BaseInterval
	case result.Sent == 0 && result.Superseded == 0:
		// ничего не подтверждено - повторяем реже
		p.state = StateRunning
		p.interval = p.backoff(p.interval)
	default:
		p.state = StateRunning
		p.interval = p.cfg.BaseInterval
	}
}

func (p *Processor) backoff(current time.Duration) time.Duration {
	next := current * 2
	if next > p.cfg.MaxInterval {
		next = p.cfg.MaxInterval
	}
	return next
}
