package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/listsync/internal/client/sync"
)

// drainPoll - период проверки опустевшей очереди в Sync
const drainPoll = 50 * time.Millisecond

// SyncReport contains the results of a one-shot synchronization
type SyncReport struct {
	Bootstrap sync.BootstrapResult
	Pending   int // записи, оставшиеся в очереди к моменту выхода
}

// Sync подключается к серверу, дожидается bootstrap и отправки очереди и
// отключается. Если очередь не опустела до отмены ctx, оставшиеся записи
// отражаются в Pending без ошибки.
func (e *Engine) Sync(ctx context.Context) (*SyncReport, error) {
	outcomes := make(chan bootstrapOutcome, 1)
	e.bootstrapped.Store(&outcomes)
	defer e.bootstrapped.Store(nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- e.Run(runCtx) }()

	stop := func() {
		cancel()
		<-runErr
	}

	var report SyncReport
	select {
	case <-ctx.Done():
		stop()
		return nil, fmt.Errorf("server did not become reachable: %w", ctx.Err())
	case err := <-runErr:
		if ctx.Err() != nil {
			return nil, fmt.Errorf("server did not become reachable: %w", ctx.Err())
		}
		if err == nil {
			err = fmt.Errorf("engine stopped before bootstrap")
		}
		return nil, err
	case outcome := <-outcomes:
		if outcome.err != nil {
			stop()
			return nil, fmt.Errorf("bootstrap failed: %w", outcome.err)
		}
		report.Bootstrap = *outcome.result
	}

	pending, err := e.waitDrained(ctx)
	stop()
	if err != nil {
		return nil, err
	}
	report.Pending = pending

	return &report, nil
}

// waitDrained ждет пустой очереди или отмены ctx
func (e *Engine) waitDrained(ctx context.Context) (int, error) {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for {
		pending, err := e.coordinator.PendingCount(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return pending, nil
			}
			return 0, err
		}
		if pending == 0 {
			return 0, nil
		}

		select {
		case <-ctx.Done():
			return pending, nil
		case <-ticker.C:
		}
	}
}
