package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/listsync/internal/server/storage/sqlite"
	"github.com/iudanet/listsync/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	return slog.New(slog.NewTextHandler(io.Discard, opts))
}

func setupTestStorage(t *testing.T) *sqlite.Storage {
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

type sentNotification struct {
	userIDs      []string
	notification api.Notification
}

// recordingNotifier запоминает уведомления вместо рассылки
type recordingNotifier struct {
	sent []sentNotification
	mu   sync.Mutex
}

func (n *recordingNotifier) Notify(userIDs []string, notification api.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, sentNotification{userIDs: userIDs, notification: notification})
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]sentNotification(nil), n.sent...)
}

// newRequest собирает запрос аутентифицированного пользователя
func newRequest(t *testing.T, method, target, userID string, body any, pathValues ...string) *http.Request {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req = req.WithContext(WithUser(req.Context(), userID, userID))
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
