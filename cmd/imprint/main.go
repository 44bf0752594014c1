// Command imprint finds byte-identical files under a directory tree and
// replaces duplicates with space-sharing links into a content-addressed
// vault.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Rakshat28/imprint"
)

var debug = flag.Bool("debug", false, "enable debug mode: format error messages with additional detail")

func funcmain() error {
	flag.Parse()

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"scan":    {cmdscan},
		"dedupe":  {cmddedupe},
		"restore": {cmdrestore},
		"env":     {printenv},
	}

	args := flag.Args()
	verb := "help"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		fmt.Fprintf(os.Stderr, "imprint [-flags] <command> [-flags] <args>\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "To get help on any command, use imprint <command> -help.\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "\tscan     - read-only duplicate discovery\n")
		fmt.Fprintf(os.Stderr, "\tdedupe   - vault duplicates and replace with space-sharing links\n")
		fmt.Fprintf(os.Stderr, "\trestore  - rehydrate independent byte copies\n")
		fmt.Fprintf(os.Stderr, "\tenv      - show imprint's storage locations\n")
		os.Exit(2)
	}

	ctx, canc := imprint.InterruptibleContext()
	defer canc()

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: imprint <command> [options]\n")
		os.Exit(2)
	}

	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}

	return imprint.RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
