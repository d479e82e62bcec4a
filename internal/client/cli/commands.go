package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/timex"
)

// getSimpleText, getSecret and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
	getMultiline  = GetMultiline
)

const (
	deleteConfirmation = "DELETE"
	pingTimeout        = 3 * time.Second
)

var errBackupDisabled = errors.New("backup storage is not configured (set s3_bucket)")

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

// NewID prints a fresh sync id. Nothing is connected or stored.
func (a *App) NewID(ctx context.Context) error {
	id, err := a.session.GenerateSyncID()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "New sync id: %s\n", id)
	fmt.Fprintln(a.out, "Keep it secret: anyone holding it can read and change this notebook.")
	fmt.Fprintf(a.out, "Run 'connect %s' on every device that should share it.\n", id)
	return nil
}

// Connect joins a sync id and runs the first sync. Without an argument the
// id is read without echo.
func (a *App) Connect(ctx context.Context, args []string) error {
	var id string
	switch len(args) {
	case 0:
		var err error
		if id, err = getSecret(a.reader, "Enter sync id", a.out); err != nil {
			return err
		}
	case 1:
		id = args[0]
	default:
		return usage("connect [id]")
	}

	if err := a.session.Connect(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Connected.")
	return a.Sync(ctx)
}

func (a *App) Disconnect(ctx context.Context) error {
	if err := a.session.Disconnect(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Disconnected. Local entries are kept.")
	return nil
}

// DeleteAccount asks for confirmation before wiping the relay copy.
func (a *App) DeleteAccount(ctx context.Context) error {
	answer, err := getSimpleText(a.reader,
		fmt.Sprintf("This deletes every synced record on the relay. Type %s to confirm", deleteConfirmation), a.out)
	if err != nil {
		return err
	}
	if answer != deleteConfirmation {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.session.DeleteAccount(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account deleted. Local entries are kept.")
	return nil
}

// Status prints the session snapshot and, when an identity is set, checks
// the relay.
func (a *App) Status(ctx context.Context) error {
	st := a.session.Status()
	fmt.Fprint(a.out, formatStatus(st))
	if st.SyncID == "" {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.session.Ping(pingCtx); err != nil {
		fmt.Fprintf(a.out, "Relay reachable: no (%v)\n", err)
	} else {
		fmt.Fprintln(a.out, "Relay reachable: yes")
	}
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res, err := a.session.SyncNow(ctx)
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Fprintln(a.out, "A sync is already running.")
		return nil
	}
	fmt.Fprintln(a.out, formatSyncResult(res))
	return nil
}

func (a *App) Mode(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("mode off|connected")
	}
	if err := a.session.SetMode(ctx, models.SyncMode(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sync mode: %s\n", args[0])
	return nil
}

func (a *App) Server(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("server <url>|default")
	}
	if err := a.session.SetServerURL(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Relay: %s\n", a.session.Status().ServerURL)
	return nil
}

func (a *App) Add(ctx context.Context) error {
	text, err := getMultiline(a.reader, "Entry text", a.out)
	if err != nil {
		return err
	}
	tags, err := getSimpleText(a.reader, "Tags (comma separated, optional)", a.out)
	if err != nil {
		return err
	}

	e, err := a.entries.Create(ctx, text, parseTags(tags))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s\n", e.ID)
	return nil
}

// Edit replaces the text blocks of an entry with a single new paragraph.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("edit <id>")
	}
	e, err := a.entries.Get(ctx, args[0])
	if err != nil {
		return err
	}

	text, err := getMultiline(a.reader, "New text", a.out)
	if err != nil {
		return err
	}
	e.Blocks = []models.Block{models.TextBlock(text)}

	if _, err := a.entries.Update(ctx, *e); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", e.ID)
	return nil
}

func (a *App) List(ctx context.Context) error {
	all, err := a.entries.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(a.out, "No entries.")
		return nil
	}
	for _, e := range all {
		fmt.Fprintln(a.out, formatOverview(e))
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	e, err := a.entries.Get(ctx, args[0])
	if err != nil {
		return err
	}
	links, err := a.entries.Backlinks(ctx, e.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:       %s\n", e.ID)
	fmt.Fprintf(a.out, "Day:      %s\n", e.DayKey)
	fmt.Fprintf(a.out, "Updated:  %s\n", timex.FromMillis(e.UpdatedAt).Format("2006-01-02 15:04:05"))
	if len(e.Tags) > 0 {
		fmt.Fprintf(a.out, "Tags:     %s\n", strings.Join(e.Tags, ", "))
	}
	if e.Signifier != "" {
		fmt.Fprintf(a.out, "Marked:   %s\n", e.Signifier)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, models.PlainText(e.Blocks))
	if len(links) > 0 {
		fmt.Fprintf(a.out, "\nLinked from: %s\n", strings.Join(links, ", "))
	}
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rm <id>")
	}
	if err := a.entries.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", args[0])
	return nil
}

func (a *App) Find(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("find <text>")
	}
	found, err := a.entries.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(a.out, "Nothing found.")
		return nil
	}
	for _, e := range found {
		fmt.Fprintln(a.out, formatOverview(e))
	}
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	if a.backups == nil {
		return errBackupDisabled
	}
	location, err := a.session.Export(ctx, a.backups)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Backup written to %s\n", location)
	return nil
}

// Restore imports a backup, the newest one when no location is given.
func (a *App) Restore(ctx context.Context, args []string) error {
	if a.backups == nil {
		return errBackupDisabled
	}
	if len(args) > 1 {
		return usage("restore [s3://bucket/key]")
	}
	location := ""
	if len(args) == 1 {
		location = args[0]
	}

	res, err := a.session.Import(ctx, a.backups, location)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatImportResult(res))
	return nil
}
