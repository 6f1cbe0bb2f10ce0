package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/listsync/internal/client/sync"
	"github.com/iudanet/listsync/internal/validation"
)

func (c *Cli) runLists(ctx context.Context, _ []string) error {
	lists, err := c.lists.GetAllLists(ctx)
	if err != nil {
		return fmt.Errorf("failed to load lists: %w", err)
	}
	return c.render("lists", listsTemplate, lists)
}

func (c *Cli) runShow(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	return c.render("list", listTemplate, list)
}

func (c *Cli) runCreate(ctx context.Context, args []string) error {
	if err := validation.ValidateTitle(args[0]); err != nil {
		return err
	}

	var description *string
	if len(args) > 1 {
		d := strings.Join(args[1:], " ")
		if err := validation.ValidateDescription(d); err != nil {
			return err
		}
		description = &d
	}

	list, err := c.lists.CreateList(ctx, args[0], description)
	if list != nil {
		c.io.Printf("✓ Created list %q (%s)\n", list.Title, list.ID)
	}
	return err
}

func (c *Cli) runRename(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}

	title := strings.Join(args[1:], " ")
	if err := validation.ValidateTitle(title); err != nil {
		return err
	}
	if err := c.lists.EditListMetadata(ctx, list.ID, sync.MetadataUpdate{Title: &title}); err != nil {
		return err
	}
	c.io.Printf("✓ Renamed %q to %q\n", list.Title, title)
	return nil
}

// runDescribe задает описание; без текста описание удаляется
func (c *Cli) runDescribe(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}

	upd := sync.MetadataUpdate{ClearDescription: true}
	if len(args) > 1 {
		d := strings.Join(args[1:], " ")
		if err := validation.ValidateDescription(d); err != nil {
			return err
		}
		upd = sync.MetadataUpdate{Description: &d}
	}
	if err := c.lists.EditListMetadata(ctx, list.ID, upd); err != nil {
		return err
	}
	c.io.Printf("✓ Updated description of %q\n", list.Title)
	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	if err := c.lists.DeleteList(ctx, list.ID); err != nil {
		if errors.Is(err, sync.ErrNotOwner) {
			return fmt.Errorf("%w; use 'leave %s' instead", err, args[0])
		}
		return err
	}
	c.io.Printf("✓ Deleted list %q\n", list.Title)
	return nil
}

func (c *Cli) runLeave(ctx context.Context, args []string) error {
	list, err := c.resolveList(ctx, args[0])
	if err != nil {
		return err
	}
	if err := c.lists.LeaveList(ctx, list.ID); err != nil {
		return err
	}
	c.io.Printf("✓ Left list %q\n", list.Title)
	return nil
}
