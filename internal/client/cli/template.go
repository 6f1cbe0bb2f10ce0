package cli

import (
	"text/template"
	"time"
)

var templateFuncs = template.FuncMap{
	"short": shortID,
	"add":   func(a, b int) int { return a + b },
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format(time.DateTime)
	},
}

const listsTemplate = `
=== Lists ===

{{- if eq (len .) 0 }}
No lists found.

Use 'listsync create <title>' to create your first list.

{{ else }}
Found {{len .}} list(s):

{{- range . }}
- {{ .Title }}
   ID:    {{ short .ID }}
   Items: {{ .CompletedCount }}/{{ len .Items }} done
{{- end }}

Use 'listsync show <list>' to view items.
{{ end }}`

const listTemplate = `
=== {{ .Title }} ===
{{- if .Description }}
{{ .Description }}
{{- end }}

ID:      {{ .ID }}
Owner:   {{ .OwnerID }}
Updated: {{ when .UpdatedAt }}

{{- if eq (len .Items) 0 }}

No items yet. Use 'listsync add {{ short .ID }} <text>' to add one.
{{- else }}
{{ range $i, $item := .Items }}
{{ add $i 1 }}. [{{ if $item.IsCompleted }}x{{ else }} {{ end }}] {{ $item.Content }}
{{- end }}
{{- end }}
`

const syncReportTemplate = `
✓ Synchronization completed!

New lists:       {{ .Bootstrap.ListsCreated }}
Updated lists:   {{ .Bootstrap.ListsUpdated }}
Removed lists:   {{ .Bootstrap.ListsRemoved }}
Changes applied: {{ .Bootstrap.DeltasApplied }}
{{- if .Bootstrap.ListsFailed }}
Failed lists:    {{ .Bootstrap.ListsFailed }}
{{- end }}
{{- if .Pending }}

⚠️  {{ .Pending }} change(s) could not be sent yet and stay queued.
{{- else }}

All local changes are on the server.
{{- end }}
`

const statusTemplate = `
=== Sync Status ===

User:   {{ .UserID }}
Device: {{ .ClientID }}

{{- if .Pending }}

⚠️  Pending sync: {{ .Pending }} change(s) waiting to be sent
Run 'listsync sync' to synchronize with server.
{{- else }}

✓ No pending changes
{{- end }}
{{- if .Lists }}

Last synchronized:
{{- range .Lists }}
  {{ short .ID }}  {{ when .LastSync }}  {{ .Title }}
{{- end }}
{{- end }}
`

const usageTemplate = `listsync - offline-first shared lists

Usage:
  listsync [OPTIONS] COMMAND [ARGS]

Options:
  -version            Show version information
  -server URL         Server URL (default: http://localhost:8080)
  -db PATH            Path to local database (default: listsync.db)
  -token TOKEN        Access token (not recommended, use env var or file)
  -token-file PATH    Path to file containing the access token
  -v                  Verbose logging

Access Token Priority (highest to lowest):
  1. LISTSYNC_TOKEN environment variable
  2. -token-file (file path)
  3. -token (command line)
  4. Interactive prompt (fallback)

Lists are referenced by ID, ID prefix or title; items by position or ID prefix.

Commands:
  lists                          Show all lists
  show <list>                    Show list items
  create <title> [description]   Create a list
  rename <list> <title>          Change list title
  describe <list> [description]  Set or clear list description
  delete <list>                  Delete a list for everyone (owner)
  leave <list>                   Leave a shared list
  add <list> <text>              Add an item
  edit <list> <item> <text>      Change item text
  toggle <list> <item>           Mark item done / not done
  move <list> <item> <position>  Move item to position
  remove <list> <item>           Remove an item
  clear-completed <list>         Remove all done items
  sync                           Synchronize with server and exit
  status                         Show pending changes and last sync times
  watch                          Stay connected and print live changes
  reset                          Delete all local data

Examples:
  export LISTSYNC_TOKEN=$(listsync-server -issue-token alice)
  listsync create Groceries
  listsync add Groceries Milk
  listsync toggle Groceries 1
  listsync sync
`
