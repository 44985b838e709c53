package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"group-lab/internal"
	"group-lab/narrator"
	"group-lab/repositories"
	"group-lab/resolver"
	"group-lab/search"
	"group-lab/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		color.Red.Printf("Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the stores and the group service, then dispatches the sub-command.
// Returning instead of exiting lets the deferred closes flush badger and bluge.
func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("missing command")
	}

	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	tag, err := narrator.ParseLocale(config.Locale)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Debug("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (Bluge)
	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		_ = blugeWriter.Close()
	}()

	// 4. Name resolution & narration
	contacts, err := resolver.NewContactResolver(repositories.NewContactRepository(db), log, config.ResolverCacheSize)
	if err != nil {
		return err
	}
	groupService := services.NewGroupService(
		log,
		repositories.NewGroupRepository(db, log),
		repositories.NewUpdateRepository(db, log, config.LimitUpdates),
		search.NewGroupIndex(blugeWriter, log),
		narrator.New(log, contacts, narrator.WithLanguage(tag)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := commands{
		service:   groupService,
		contacts:  contacts,
		db:        db,
		log:       log,
		debugPort: config.DebugPort,
		out:       os.Stdout,
	}
	return cli.dispatch(ctx, args[0], args[1:])
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: groupctl <command> [flags]

commands:
  create   create a group
  update   apply changes to a group and print what changed
  show     print the latest snapshot of a group
  history  print the change log of a group
  search   find groups by name or member name
  contact  save a display name for a member identifier
  reindex  rebuild the search index from the store
  serve    browse the stored records over http`)
}
