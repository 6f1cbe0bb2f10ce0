// Package listener держит подписку на push-канал сервера и передает
// входящие изменения координатору.
package listener

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/pkg/api"
)

// Inbound принимает входящие изменения
type Inbound interface {
	HandleRemoteDelta(ctx context.Context, delta api.Delta) error
	HandleRemoteListCreated(ctx context.Context, meta api.ListMeta) error
	HandleRemoteListDeleted(ctx context.Context, listID string) error
}

// LivenessSink получает сигнал живости канала (connection.Monitor)
type LivenessSink interface {
	SetRemoteChannelLive(live bool)
}

// Config - параметры переподключения
type Config struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// DefaultConfig returns the production reconnect settings
func DefaultConfig() Config {
	return Config{
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Listener переподключается к каналу, пока не отменен контекст.
type Listener struct {
	sub      remote.Subscriber
	inbound  Inbound
	live     LivenessSink
	logger   *slog.Logger
	clientID string
	cfg      Config
	echoes   atomic.Int64
}

// New creates a listener that drops notifications tagged with clientID
func New(sub remote.Subscriber, inbound Inbound, live LivenessSink, clientID string, cfg Config, logger *slog.Logger) *Listener {
	return &Listener{
		sub:      sub,
		inbound:  inbound,
		live:     live,
		clientID: clientID,
		cfg:      cfg,
		logger:   logger,
	}
}

// DroppedEchoes возвращает число отброшенных собственных дельт.
func (l *Listener) DroppedEchoes() int64 {
	return l.echoes.Load()
}

// Run держит подписку до отмены ctx. Канал считается живым с момента
// onReady и до разрыва. Переподключение с экспоненциальной задержкой,
// сбрасываемой после успешного подключения.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("Remote listener started")
	defer l.logger.Info("Remote listener stopped")

	backoff := l.cfg.MinBackoff
	for {
		var connected atomic.Bool

		err := l.sub.Subscribe(ctx,
			func() {
				connected.Store(true)
				l.live.SetRemoteChannelLive(true)
				l.logger.Info("Subscription established")
			},
			func(n api.Notification) {
				l.dispatch(ctx, n)
			})

		l.live.SetRemoteChannelLive(false)
		if ctx.Err() != nil {
			return nil
		}

		if connected.Load() {
			backoff = l.cfg.MinBackoff
		}
		l.logger.Warn("Subscription dropped, reconnecting", "error", err, "retry_in", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if !connected.Load() {
			backoff *= 2
			if backoff > l.cfg.MaxBackoff {
				backoff = l.cfg.MaxBackoff
			}
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, n api.Notification) {
	var err error

	switch n.Type {
	case api.NotificationDeltaInserted:
		if n.Delta == nil {
			l.logger.Warn("Delta notification without delta", "list_id", n.ListID)
			return
		}
		if n.Delta.ClientID == l.clientID {
			l.echoes.Add(1)
			return
		}
		err = l.inbound.HandleRemoteDelta(ctx, *n.Delta)

	case api.NotificationListCreated:
		meta := api.ListMeta{ID: n.ListID}
		if n.List != nil {
			meta = *n.List
		}
		err = l.inbound.HandleRemoteListCreated(ctx, meta)

	case api.NotificationListDeleted:
		err = l.inbound.HandleRemoteListDeleted(ctx, n.ListID)

	default:
		l.logger.Debug("Ignoring unknown notification", "type", n.Type)
		return
	}

	if err != nil {
		l.logger.Warn("Failed to handle notification",
			"type", n.Type,
			"list_id", n.ListID,
			"error", err)
	}
}
