package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shoplist/server/internal/client/api"
	"github.com/shoplist/server/internal/client/connectivity"
	"github.com/shoplist/server/internal/client/store"
	"github.com/shoplist/server/internal/client/sync"
	"github.com/shoplist/server/internal/config"
	"github.com/shoplist/server/internal/models"
)

const usage = `Usage: shoplist <command> [args]

Commands:
  setup <pin>    Configure the server PIN and store a session token
  login <pin>    Exchange the PIN for a session token
  list           Show the shopping list (cached when offline)
  add <name>     Add an item
  done <id>      Mark an item completed
  undone <id>    Mark an item incomplete
  rm <id>        Remove an item
  sync           Push queued changes to the server
  status         Show connectivity, queue depth and last sync time
`

type app struct {
	cfg     *config.Config
	store   *store.Store
	client  *api.Client
	monitor *connectivity.Monitor
	engine  *sync.Engine
	mutator *sync.Mutator
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer a.store.Close()
	defer a.monitor.Close()

	if err := a.run(ctx, args[0], args[1:]); err != nil {
		fatal("%v", err)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.Client.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	tokenPath := cfg.Client.TokenPath
	client := api.NewClient(cfg.Client.ServerURL, fileToken(tokenPath),
		time.Duration(cfg.Client.RequestTimeoutSeconds)*time.Second)

	monitor := connectivity.NewMonitor(client.Ping(ctx))
	engine := sync.NewEngine(st, client, monitor)
	monitor.SetSyncTrigger(func() {
		engine.SyncPendingChanges(context.Background())
	})

	return &app{
		cfg:     cfg,
		store:   st,
		client:  client,
		monitor: monitor,
		engine:  engine,
		mutator: sync.NewMutator(st, client, monitor),
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "setup":
		return a.auth(ctx, args, a.client.SetupPin)
	case "login":
		return a.auth(ctx, args, a.client.VerifyPin)
	case "list":
		return a.list(ctx)
	case "add":
		if len(args) == 0 {
			return fmt.Errorf("add: item name required")
		}
		item, err := a.mutator.Create(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		// A blank name is a safe no-op, signalled with a nil item.
		if item == nil {
			fmt.Println("nothing added")
			return nil
		}
		fmt.Printf("added %s (%s)\n", item.Name, item.ID)
		return nil
	case "done":
		return a.setCompleted(ctx, args, true)
	case "undone":
		return a.setCompleted(ctx, args, false)
	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("rm: item id required")
		}
		if err := a.mutator.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("removed")
		return nil
	case "sync":
		res := a.engine.SyncPendingChanges(ctx)
		if !res.Success {
			return fmt.Errorf("sync: %s", res.Error)
		}
		fmt.Printf("synced, %d change(s) applied\n", len(res.Applied))
		for _, ce := range res.Errors {
			fmt.Printf("  rejected %s: %s\n", ce.ItemID, ce.Error)
		}
		return nil
	case "status":
		return a.status(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) auth(ctx context.Context, args []string, fn func(context.Context, string) (string, error)) error {
	if len(args) != 1 {
		return fmt.Errorf("a 4-6 digit PIN is required")
	}
	token, err := fn(ctx, args[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.cfg.Client.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Println("session token saved")
	return nil
}

func (a *app) list(ctx context.Context) error {
	items, fromCache, err := a.engine.FetchItemsWithFallback(ctx)
	if err != nil {
		return err
	}
	if fromCache {
		fmt.Println("(offline, showing cached list)")
	}
	if len(items) == 0 {
		fmt.Println("list is empty")
		return nil
	}
	for _, item := range items {
		mark := " "
		if item.Completed {
			mark = "x"
		}
		fmt.Printf("[%s] %-30s %s\n", mark, item.Name, item.ID)
	}
	return nil
}

func (a *app) setCompleted(ctx context.Context, args []string, completed bool) error {
	if len(args) != 1 {
		return fmt.Errorf("item id required")
	}
	item, err := a.mutator.Update(ctx, args[0], models.ItemPatch{Completed: &completed})
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("no item with id %s", args[0])
	}
	fmt.Printf("%s marked %s\n", item.Name, completedWord(completed))
	return nil
}

func (a *app) status(ctx context.Context) error {
	state := "offline"
	if a.monitor.Online() {
		state = "online"
	}
	fmt.Printf("server:    %s (%s)\n", a.cfg.Client.ServerURL, state)

	changes, err := a.store.GetQueuedChanges(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("queued:    %d change(s)\n", len(changes))

	last, err := a.store.GetLastSyncTime(ctx)
	if err != nil {
		return err
	}
	if last == "" {
		last = "never"
	}
	fmt.Printf("last sync: %s\n", last)
	return nil
}

func completedWord(completed bool) string {
	if completed {
		return "done"
	}
	return "not done"
}

// fileToken reads the session token lazily so a login in another
// terminal is picked up without restarting.
func fileToken(path string) api.TokenProvider {
	return func() (string, error) {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
