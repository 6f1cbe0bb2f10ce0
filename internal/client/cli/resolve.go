package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iudanet/listsync/internal/models"
)

var (
	ErrListNotFound  = errors.New("list not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrAmbiguousList = errors.New("list reference is ambiguous")
)

// shortIDLen - длина сокращенного ID в выводе
const shortIDLen = 8

// resolveList находит список по ID, префиксу ID или названию (без учета регистра)
func (c *Cli) resolveList(ctx context.Context, ref string) (*models.List, error) {
	lists, err := c.lists.GetAllLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}

	var byPrefix, byTitle []*models.List
	for _, l := range lists {
		if l.ID == ref {
			return l, nil
		}
		if strings.HasPrefix(l.ID, ref) {
			byPrefix = append(byPrefix, l)
		}
		if strings.EqualFold(l.Title, ref) {
			byTitle = append(byTitle, l)
		}
	}

	for _, matches := range [][]*models.List{byPrefix, byTitle} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return nil, fmt.Errorf("%w: %q matches %d lists, use the list ID", ErrAmbiguousList, ref, len(matches))
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrListNotFound, ref)
}

// resolveItem находит элемент по позиции (с 1, как в выводе show) или по ID/префиксу ID
func resolveItem(list *models.List, ref string) (int, *models.Item, error) {
	if pos, err := strconv.Atoi(ref); err == nil {
		if pos < 1 || pos > len(list.Items) {
			return 0, nil, fmt.Errorf("%w: position %d, list has %d item(s)", ErrItemNotFound, pos, len(list.Items))
		}
		return pos - 1, &list.Items[pos-1], nil
	}

	found := -1
	for i := range list.Items {
		if list.Items[i].ID == ref {
			return i, &list.Items[i], nil
		}
		if strings.HasPrefix(list.Items[i].ID, ref) {
			if found >= 0 {
				return 0, nil, fmt.Errorf("%w: %q is ambiguous", ErrItemNotFound, ref)
			}
			found = i
		}
	}
	if found < 0 {
		return 0, nil, fmt.Errorf("%w: %s", ErrItemNotFound, ref)
	}
	return found, &list.Items[found], nil
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
