package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iudanet/listsync/pkg/api"
)

// CreateList создает список на сервере. Повторное создание не ошибка.
func (c *Client) CreateList(ctx context.Context, meta api.ListMeta) (*api.ListMeta, error) {
	var resp api.ListMeta
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/lists", meta, &resp); err != nil {
		return nil, fmt.Errorf("create list request failed: %w", err)
	}
	return &resp, nil
}

// DeleteList удаляет список для всех участников
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	path := "/api/v1/lists/" + url.PathEscape(listID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete list request failed: %w", err)
	}
	return nil
}

// RemoveSelfAsParticipant выходит из списка
func (c *Client) RemoveSelfAsParticipant(ctx context.Context, listID string) error {
	path := "/api/v1/lists/" + url.PathEscape(listID) + "/participants/me"
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("leave list request failed: %w", err)
	}
	return nil
}

// GetUserLists возвращает списки текущего пользователя
func (c *Client) GetUserLists(ctx context.Context) ([]api.ListMeta, error) {
	var resp api.ListsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/lists", nil, &resp); err != nil {
		return nil, fmt.Errorf("get lists request failed: %w", err)
	}
	return resp.Lists, nil
}

// PushDelta отправляет дельту. Дельта с уже известным ID принимается повторно без изменений.
func (c *Client) PushDelta(ctx context.Context, listID string, delta api.Delta) error {
	var resp api.PushDeltaResponse
	path := "/api/v1/lists/" + url.PathEscape(listID) + "/deltas"
	if err := c.doRequest(ctx, http.MethodPost, path, delta, &resp); err != nil {
		return fmt.Errorf("push delta request failed: %w", err)
	}
	return nil
}

// PullDeltas получает дельты списка новее since
func (c *Client) PullDeltas(ctx context.Context, listID string, since int64, excludeClientID string) ([]api.Delta, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatInt(since, 10))
	if excludeClientID != "" {
		query.Set("exclude_client", excludeClientID)
	}

	var resp api.DeltasResponse
	path := "/api/v1/lists/" + url.PathEscape(listID) + "/deltas?" + query.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull deltas request failed: %w", err)
	}
	return resp.Deltas, nil
}
