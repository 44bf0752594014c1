package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Rakshat28/imprint/internal/appdir"
	"github.com/Rakshat28/imprint/internal/pipeline"
	"github.com/Rakshat28/imprint/internal/progress"
	"github.com/Rakshat28/imprint/internal/report"
	"github.com/Rakshat28/imprint/internal/vault"
)

const restoreHelp = `imprint restore <path> [-n]

Walks path, rehydrating every file the state store knows about into an
independent byte copy, and prunes vault masters whose reference count
reaches zero.

Example:
  % imprint restore ~/Pictures
`

func cmdrestore(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("restore", flag.ExitOnError)
	dryRun := fset.Bool("n", false, "preview only: no writes to the tree, the vault, or the state store")
	reportPath := fset.String("report", "", "write a JSON summary of this run to the given path")
	fset.Usage = usage(fset, restoreHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		fset.Usage()
		os.Exit(2)
	}
	root := fset.Arg(0)

	store, cleanup, err := openStoreForRun(*dryRun)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	defer store.Close()

	vaultRoot, err := appdir.VaultRoot()
	if err != nil {
		return err
	}
	v := vault.New(vaultRoot)

	logger := log.New(os.Stdout, "", 0)
	p := pipeline.New(root, v, store, pipeline.Options{DryRun: *dryRun}, logger)
	reporter := progress.New()
	p.Progress = reporter

	summary, err := p.Restore(ctx)
	if err != nil {
		return err
	}

	prefix := ""
	if *dryRun {
		prefix = "DRY RUN "
	}
	reporter.Line("%srestore complete. restored: %d, vault entries freed: %d, errors: %d",
		prefix, summary.Restored, summary.VaultEntriesFreed, summary.Errors)

	if *reportPath != "" {
		return report.Write(*reportPath, report.Document{Command: "restore", Root: root, Summary: summary})
	}
	return nil
}
