package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Rakshat28/imprint/internal/appdir"
	"github.com/Rakshat28/imprint/internal/pipeline"
	"github.com/Rakshat28/imprint/internal/progress"
	"github.com/Rakshat28/imprint/internal/report"
	"github.com/Rakshat28/imprint/internal/vault"
)

const dedupeHelp = `imprint dedupe <path> [-paranoid] [-n] [-allow-unsafe-hardlinks]

Finds byte-identical files under path, moves one copy of each duplicate set
into the content-addressed vault, and replaces every occurrence with a
space-sharing link (reflink by preference, hard link by explicit opt-in).

Example:
  % imprint dedupe ~/Pictures -paranoid
`

func cmddedupe(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("dedupe", flag.ExitOnError)
	paranoid := fset.Bool("paranoid", false, "bytewise-verify before every link, catching bit rot the sparse/full hash missed")
	dryRun := fset.Bool("n", false, "preview only: no writes to the tree, the vault, or the state store")
	allowUnsafeHardlinks := fset.Bool("allow-unsafe-hardlinks", false, "permit hard-link fallback when reflinks are unsupported (shares mode/mtime/xattrs across copies)")
	reportPath := fset.String("report", "", "write a JSON summary of this run to the given path")
	fset.Usage = usage(fset, dedupeHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		fset.Usage()
		os.Exit(2)
	}
	root := fset.Arg(0)

	if *dryRun && *paranoid {
		fmt.Fprintln(os.Stderr, "note: -paranoid has no effect under -n: no vault master exists yet to compare against")
	}

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
	opts := pipeline.Options{
		Paranoid:             *paranoid,
		DryRun:               *dryRun,
		AllowUnsafeHardlinks: *allowUnsafeHardlinks,
	}
	p := pipeline.New(root, v, store, opts, logger)
	reporter := progress.New()
	p.Progress = reporter

	summary, err := p.Dedupe(ctx)
	if err != nil {
		return err
	}

	prefix := ""
	if *dryRun {
		prefix = "DRY RUN "
	}
	reporter.Line("%sdedupe complete. duplicate groups: %d, reflinked: %d, hardlinked: %d, errors: %d",
		prefix, summary.DuplicateGroups, summary.Reflinked, summary.Hardlinked, summary.Errors)

	if *reportPath != "" {
		return report.Write(*reportPath, report.Document{Command: "dedupe", Root: root, Summary: summary})
	}
	return nil
}
