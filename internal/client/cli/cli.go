// Package cli - команды клиента поверх движка синхронизации.
package cli

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/iudanet/listsync/internal/client/engine"
	"github.com/iudanet/listsync/internal/client/iocli"
	"github.com/iudanet/listsync/internal/client/sync"
)

// ErrUnknownCommand is returned for an unrecognized command name
var ErrUnknownCommand = errors.New("unknown command")

// Cli выполняет одну команду над локальными списками
type Cli struct {
	io     iocli.IO
	engine *engine.Engine
	lists  *sync.Coordinator
}

func New(io iocli.IO, e *engine.Engine) *Cli {
	return &Cli{
		io:     io,
		engine: e,
		lists:  e.Coordinator(),
	}
}

// command - обработчик команды и минимальное число аргументов
type command struct {
	run     func(c *Cli, ctx context.Context, args []string) error
	usage   string
	minArgs int
}

var commands = map[string]command{
	"lists":           {run: (*Cli).runLists, usage: "lists"},
	"show":            {run: (*Cli).runShow, usage: "show <list>", minArgs: 1},
	"create":          {run: (*Cli).runCreate, usage: "create <title> [description]", minArgs: 1},
	"rename":          {run: (*Cli).runRename, usage: "rename <list> <title>", minArgs: 2},
	"describe":        {run: (*Cli).runDescribe, usage: "describe <list> [description]", minArgs: 1},
	"delete":          {run: (*Cli).runDelete, usage: "delete <list>", minArgs: 1},
	"leave":           {run: (*Cli).runLeave, usage: "leave <list>", minArgs: 1},
	"add":             {run: (*Cli).runAdd, usage: "add <list> <text>", minArgs: 2},
	"edit":            {run: (*Cli).runEdit, usage: "edit <list> <item> <text>", minArgs: 3},
	"toggle":          {run: (*Cli).runToggle, usage: "toggle <list> <item>", minArgs: 2},
	"move":            {run: (*Cli).runMove, usage: "move <list> <item> <position>", minArgs: 3},
	"remove":          {run: (*Cli).runRemove, usage: "remove <list> <item>", minArgs: 2},
	"clear-completed": {run: (*Cli).runClearCompleted, usage: "clear-completed <list>", minArgs: 1},
	"sync":            {run: (*Cli).runSync, usage: "sync"},
	"status":          {run: (*Cli).runStatus, usage: "status"},
	"watch":           {run: (*Cli).runWatch, usage: "watch"},
	"reset":           {run: (*Cli).runReset, usage: "reset"},
}

// Known reports whether name is a command
func Known(name string) bool {
	_, ok := commands[name]
	return ok
}

// Run выполняет команду с аргументами
func (c *Cli) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if len(args) < cmd.minArgs {
		return fmt.Errorf("not enough arguments. Usage: listsync %s", cmd.usage)
	}

	err := cmd.run(c, ctx, args)

	// Изменение уже сохранено локально и стоит в очереди: это предупреждение,
	// а не провал команды
	var rejected *sync.RemoteRejectedError
	if errors.As(err, &rejected) {
		c.io.Printf("Warning: saved locally, but the server rejected the change: %v\n", rejected.Err)
		return nil
	}
	return err
}

// PrintUsage выводит справку
func PrintUsage(io iocli.IO) {
	tmpl := template.Must(template.New("usage").Parse(usageTemplate))
	_ = tmpl.Execute(io, nil)
}

// render выводит данные по шаблону
func (c *Cli) render(name, text string, data any) error {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(c.io, data); err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	return nil
}
