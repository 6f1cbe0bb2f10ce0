// Package engine собирает клиентский движок синхронизации: локальное
// хранилище, монитор соединения, шину событий, координатор, outbox и
// слушатель push-канала.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/listsync/internal/client/api"
	"github.com/iudanet/listsync/internal/client/auth"
	"github.com/iudanet/listsync/internal/client/connection"
	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/client/listener"
	"github.com/iudanet/listsync/internal/client/outbox"
	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/client/storage/boltdb"
	"github.com/iudanet/listsync/internal/client/sync"
)

// ErrAlreadyRunning is returned by Run and Sync when the engine is already running
var ErrAlreadyRunning = errors.New("engine is already running")

// Prober проверяет доступность сервера (локальный сигнал сети)
type Prober interface {
	Health(ctx context.Context) error
}

// Config - настройки фоновых циклов
type Config struct {
	Outbox        outbox.Config
	Listener      listener.Config
	ProbeInterval time.Duration // период проверки доступности сервера
	ProbeTimeout  time.Duration
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		Outbox:        outbox.DefaultConfig(),
		Listener:      listener.DefaultConfig(),
		ProbeInterval: 15 * time.Second,
		ProbeTimeout:  5 * time.Second,
	}
}

// Deps - внешние зависимости движка
type Deps struct {
	Store      storage.LocalStore
	Remote     remote.Store
	Subscriber remote.Subscriber
	Prober     Prober // nil - сеть считается доступной
	UserID     string
}

// Options - параметры Open
type Options struct {
	ServerURL string
	DBPath    string
	Token     string
	Config    Config
}

// Engine владеет хранилищем и всеми компонентами клиента.
type Engine struct {
	store       storage.LocalStore
	monitor     *connection.Monitor
	bus         *events.Bus
	coordinator *sync.Coordinator
	processor   *outbox.Processor
	listener    *listener.Listener
	prober      Prober
	logger      *slog.Logger
	cfg         Config

	// bootstrapped получает итог каждого завершенного bootstrap, если кто-то ждет
	bootstrapped atomic.Pointer[chan bootstrapOutcome]
	running      atomic.Bool
}

type bootstrapOutcome struct {
	result *sync.BootstrapResult
	err    error
}

// Open открывает базу, читает пользователя из токена и собирает движок
// поверх HTTP клиента сервера.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Engine, error) {
	claims, err := auth.ParseClaims(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	store, err := boltdb.New(ctx, opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := api.NewClient(opts.ServerURL, opts.Token)
	e, err := New(ctx, Deps{
		Store:      store,
		Remote:     client,
		Subscriber: client,
		Prober:     client,
		UserID:     claims.UserID,
	}, opts.Config, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return e, nil
}

// New собирает движок. Хранилище переходит во владение движка.
func New(ctx context.Context, deps Deps, cfg Config, logger *slog.Logger) (*Engine, error) {
	session, err := sync.LoadSession(ctx, deps.Store, deps.UserID)
	if err != nil {
		return nil, err
	}

	monitor := connection.NewMonitor(logger)
	bus := events.NewBus(logger)
	sender := outbox.NewSender(deps.Remote, session.ClientID)
	processor := outbox.NewProcessor(deps.Store, sender, monitor, cfg.Outbox, logger)

	coordinator := sync.NewCoordinator(session, sync.Deps{
		Store:  deps.Store,
		Remote: deps.Remote,
		Sender: sender,
		Conn:   monitor,
		Outbox: processor,
		Bus:    bus,
	}, logger)

	return &Engine{
		store:       deps.Store,
		monitor:     monitor,
		bus:         bus,
		coordinator: coordinator,
		processor:   processor,
		listener:    listener.New(deps.Subscriber, coordinator, monitor, session.ClientID, cfg.Listener, logger),
		prober:      deps.Prober,
		logger:      logger,
		cfg:         cfg,
	}, nil
}

// Coordinator возвращает координатор - API операций над списками.
func (e *Engine) Coordinator() *sync.Coordinator { return e.coordinator }

// Bus возвращает шину событий.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Monitor возвращает монитор соединения.
func (e *Engine) Monitor() *connection.Monitor { return e.monitor }

// Outbox возвращает процессор очереди.
func (e *Engine) Outbox() *outbox.Processor { return e.processor }

// Listener возвращает слушатель push-канала.
func (e *Engine) Listener() *listener.Listener { return e.listener }

// Close closes the local store
func (e *Engine) Close() error {
	return e.store.Close()
}

// Run запускает фоновые циклы до отмены ctx. Bootstrap выполняется при
// каждом переходе offline -> online, в том числе при первом подключении.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("Engine started", "user_id", e.coordinator.Session().UserID,
		"client_id", e.coordinator.Session().ClientID)

	reconnected := make(chan struct{}, 1)
	unsubscribe := e.monitor.OnChange(func(online bool) {
		e.processor.HandleConnectionChange(online)
		if online {
			select {
			case reconnected <- struct{}{}:
			default:
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.processor.Run(gctx) })
	g.Go(func() error { return e.listener.Run(gctx) })
	g.Go(func() error {
		e.probe(gctx)
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reconnected:
				e.bootstrap(gctx)
			}
		}
	})

	err := g.Wait()

	unsubscribe()
	e.monitor.SetLocalReachable(false)
	e.logger.Info("Engine stopped")
	return err
}

func (e *Engine) bootstrap(ctx context.Context) {
	result, err := e.coordinator.Bootstrap(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Warn("Bootstrap failed", "error", err)
	}
	if result == nil && err == nil {
		// уже выполняется
		return
	}

	if ch := e.bootstrapped.Load(); ch != nil {
		select {
		case *ch <- bootstrapOutcome{result: result, err: err}:
		default:
		}
	}
}

// probe периодически проверяет доступность сервера
func (e *Engine) probe(ctx context.Context) {
	if e.prober == nil {
		e.monitor.SetLocalReachable(true)
		return
	}

	ticker := time.NewTicker(e.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		e.checkReachable(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) checkReachable(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	err := e.prober.Health(probeCtx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		e.logger.Debug("Server unreachable", "error", err)
	}
	e.monitor.SetLocalReachable(err == nil)
}
