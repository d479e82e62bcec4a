package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	NewID(ctx context.Context) error
	Connect(ctx context.Context, args []string) error
	Disconnect(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Status(ctx context.Context) error
	Sync(ctx context.Context) error
	Mode(ctx context.Context, args []string) error
	Server(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Find(ctx context.Context, args []string) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  new                      generate a new sync id
  connect [id]             connect this device (prompts for the id if omitted)
  disconnect               forget the sync id on this device
  delete-account           delete every record of the sync id on the relay
  status                   show sync status
  sync                     push local changes and pull remote ones
  mode off|connected       switch sync off or back on
  server <url>|default     use another relay
  add                      add an entry
  edit <id>                replace the text of an entry
  (l)ist                   list entries
  show <id>                show an entry and what links to it
  rm <id>                  delete an entry
  find <text>              search entries
  backup                   upload an encrypted backup
  restore [location]       import a backup (the newest if omitted)
  exit | quit              leave the program`

// runREPL reads one command per line from reader and dispatches it to a.
// The first token is the command and the rest are its arguments. Command
// errors are printed and the loop goes on. It returns on EOF or when the
// user types "exit" or "quit".
//
// Prompts issued by commands read from the same reader, so the loop must
// not buffer ahead of it.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("wl %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "new":
			cmdErr = a.NewID(ctx)
		case "connect":
			cmdErr = a.Connect(ctx, args)
		case "disconnect":
			cmdErr = a.Disconnect(ctx)
		case "delete-account":
			cmdErr = a.DeleteAccount(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "mode":
			cmdErr = a.Mode(ctx, args)
		case "server":
			cmdErr = a.Server(ctx, args)
		case "add":
			cmdErr = a.Add(ctx)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "rm":
			cmdErr = a.Remove(ctx, args)
		case "find":
			cmdErr = a.Find(ctx, args)
		case "backup":
			cmdErr = a.Backup(ctx)
		case "restore":
			cmdErr = a.Restore(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
		if err != nil {
			return
		}
	}
}
