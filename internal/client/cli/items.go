package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/iudanet/listsync/internal/validation"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	if err := validation.ValidateItemContent(text); err != nil {
		return err
	}
	_, err = c.lists.AddItem(ctx, list.ID, text)
	if err == nil {
		c.io.Printf("✓ Added %q to %q\n", text, list.Title)
	}
	return err
}

func (c *Cli) runEdit(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	_, item, err := resolveItem(list, args[1])
	if err != nil {
		return err
	}

	text := strings.Join(args[2:], " ")
	if err := validation.ValidateItemContent(text); err != nil {
		return err
	}
	if err := c.lists.EditItem(ctx, list.ID, item.ID, text); err != nil {
		return err
	}
	c.io.Printf("✓ Changed %q to %q\n", item.Content, text)
	return nil
}

func (c *Cli) runToggle(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	_, item, err := resolveItem(list, args[1])
	if err != nil {
		return err
	}

	completed, err := c.lists.ToggleItem(ctx, list.ID, item.ID)
	if err != nil {
		return err
	}
	if completed {
		c.io.Printf("✓ Completed %q\n", item.Content)
	} else {
		c.io.Printf("✓ Reopened %q\n", item.Content)
	}
	return nil
}

// runMove переносит элемент на позицию (с 1)
func (c *Cli) runMove(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	_, item, err := resolveItem(list, args[1])
	if err != nil {
		return err
	}

	pos, err := strconv.Atoi(args[2])
	if err != nil || pos < 1 || pos > len(list.Items) {
		return fmt.Errorf("invalid position %q: expected 1..%d", args[2], len(list.Items))
	}

	if err := c.lists.MoveItem(ctx, list.ID, item.ID, pos-1); err != nil {
		return err
	}
	c.io.Printf("✓ Moved %q to position %d\n", item.Content, pos)
	return nil
}

func (c *Cli) runRemove(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	_, item, err := resolveItem(list, args[1])
	if err != nil {
		return err
	}

	if err := c.lists.DeleteItem(ctx, list.ID, item.ID); err != nil {
		return err
	}
	c.io.Printf("✓ Removed %q\n", item.Content)
	return nil
}

func (c *Cli) runClearCompleted(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}

	n, err := c.lists.ClearCompletedItems(ctx, list.ID)
	if err != nil {
		return err
	}
	c.io.Printf("✓ Removed %d completed item(s) from %q\n", n, list.Title)
	return nil
}
