package outbox

import (
	"sort"

	"github.com/iudanet/listsync/internal/models"
)

// Batch - записи одного списка, подготовленные к отправке.
type Batch struct {
	ListID string
	// Send - записи в порядке отправки
	Send []*models.QueueEntry
	// Superseded - записи, которые не нужно отправлять. Удаляются из очереди
	// только после подтверждения отменившей их записи.
	Superseded []*models.QueueEntry
}

// Plan группирует записи по спискам, упорядочивает их по приоритету типа и
// времени постановки и оптимизирует: LIST_DELETE отменяет все прочие записи
// списка, без нее отправляется вся группа. Сохраненные записи не меняются.
func Plan(entries []*models.QueueEntry) []Batch {
	groups := make(map[string][]*models.QueueEntry)
	var order []string
	for _, e := range entries {
		if _, ok := groups[e.ListID]; !ok {
			order = append(order, e.ListID)
		}
		groups[e.ListID] = append(groups[e.ListID], e)
	}

	batches := make([]Batch, 0, len(order))
	for _, listID := range order {
		group := groups[listID]
		sort.SliceStable(group, func(i, j int) bool {
			pi, pj := group[i].OperationType.Priority(), group[j].OperationType.Priority()
			if pi != pj {
				return pi < pj
			}
			return group[i].EnqueuedAt.Before(group[j].EnqueuedAt)
		})

		batches = append(batches, optimize(listID, group))
	}

	return batches
}

func optimize(listID string, group []*models.QueueEntry) Batch {
	// Отменяет только самая ранняя LIST_DELETE. LIST_LEAVE идет последней
	// по приоритету, созданные до нее CREATE и DELTA уходят на сервер.
	var winner *models.QueueEntry
	for _, e := range group {
		if e.OperationType == models.OperationListDelete {
			winner = e
			break
		}
	}

	if winner == nil {
		return Batch{ListID: listID, Send: group}
	}

	batch := Batch{ListID: listID, Send: []*models.QueueEntry{winner}}
	for _, e := range group {
		if e != winner {
			batch.Superseded = append(batch.Superseded, e)
		}
	}
	return batch
}
