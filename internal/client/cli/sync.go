package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/listsync/internal/client/events"
)

// syncTimeout ограничивает разовую синхронизацию
const syncTimeout = 30 * time.Second

func (c *Cli) runSync(ctx context.Context, _ []string) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()
	c.io.Println("Connecting to server...")

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	report, err := c.engine.Sync(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	return c.render("sync", syncReportTemplate, report)
}

// listStatus - строка вывода status
type listStatus struct {
	LastSync time.Time
	Title    string
	ID       string
}

func (c *Cli) runStatus(ctx context.Context, _ []string) error {
	session := c.lists.Session()

	pending, err := c.lists.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending sync count: %w", err)
	}

	lists, err := c.lists.GetAllLists(ctx)
	if err != nil {
		return fmt.Errorf("failed to load lists: %w", err)
	}

	statuses := make([]listStatus, 0, len(lists))
	for _, l := range lists {
		last, err := c.lists.LastSync(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("failed to read sync state: %w", err)
		}
		statuses = append(statuses, listStatus{ID: l.ID, Title: l.Title, LastSync: last})
	}

	return c.render("status", statusTemplate, map[string]any{
		"UserID":   session.UserID,
		"ClientID": session.ClientID,
		"Pending":  pending,
		"Lists":    statuses,
	})
}

// runWatch держит движок запущенным и печатает события до отмены ctx
func (c *Cli) runWatch(ctx context.Context, _ []string) error {
	c.io.Println("Watching for changes. Press Ctrl+C to stop.")

	unsubscribeLists := c.engine.Bus().SubscribeToAllListEvents(func(e events.Event) {
		c.io.Printf("[%s] %s\n", e.Timestamp.Format(time.TimeOnly), describeEvent(e))
	})
	defer unsubscribeLists()

	unsubscribeBootstrap := c.engine.Bus().Subscribe(events.BootstrapCompletedEvent, func(e events.Event) {
		c.io.Printf("[%s] %s\n", e.Timestamp.Format(time.TimeOnly), describeEvent(e))
	})
	defer unsubscribeBootstrap()

	unsubscribeConn := c.engine.Monitor().OnChange(func(online bool) {
		state := "offline"
		if online {
			state = "online"
		}
		c.io.Printf("[%s] connection %s\n", time.Now().Format(time.TimeOnly), state)
	})
	defer unsubscribeConn()

	return c.engine.Run(ctx)
}

func (c *Cli) runReset(ctx context.Context, _ []string) error {
	answer, err := c.io.ReadInput("Delete all local lists and unsent changes? Type 'yes' to confirm: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !strings.EqualFold(answer, "yes") {
		c.io.Println("Aborted.")
		return nil
	}

	if err := c.lists.Reset(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Local data cleared. Run 'listsync sync' to download your lists again.")
	return nil
}

// describeEvent - однострочное описание события
func describeEvent(e events.Event) string {
	list := shortID(e.ListID)

	switch p := e.Payload.(type) {
	case events.ListCreated:
		return fmt.Sprintf("list %s created: %q (%s)", list, p.Title, p.Source)
	case events.ListDeleted:
		return fmt.Sprintf("list %s deleted (%s)", list, p.Source)
	case events.ListLeft:
		return fmt.Sprintf("left list %s", list)
	case events.ListMetadataChanged:
		if p.AppliedDeltas > 0 {
			return fmt.Sprintf("list %s updated: %q, %d remote change(s)", list, p.Title, p.AppliedDeltas)
		}
		return fmt.Sprintf("list %s updated: %q (%s)", list, p.Title, p.Source)
	case events.ItemAdded:
		return fmt.Sprintf("list %s: added %q at %d", list, p.Content, p.Index+1)
	case events.ItemDeleted:
		return fmt.Sprintf("list %s: removed item %s", list, shortID(e.ItemID))
	case events.ItemContentChanged:
		return fmt.Sprintf("list %s: item %s is now %q", list, shortID(e.ItemID), p.Content)
	case events.ItemCompleted:
		return fmt.Sprintf("list %s: completed item %s", list, shortID(e.ItemID))
	case events.ItemUncompleted:
		return fmt.Sprintf("list %s: reopened item %s", list, shortID(e.ItemID))
	case events.ItemMoved:
		return fmt.Sprintf("list %s: moved item %s from %d to %d", list, shortID(e.ItemID), p.FromIndex+1, p.ToIndex+1)
	case events.BootstrapCompleted:
		return fmt.Sprintf("synchronized: %d new, %d updated, %d removed list(s), %d change(s) applied",
			p.ListsCreated, p.ListsUpdated, p.ListsRemoved, p.DeltasApplied)
	}
	return string(e.Type)
}
