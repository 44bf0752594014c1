package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/Rakshat28/imprint/internal/appdir"
)

const envHelp = `imprint env [-flags]

Display imprint's storage locations.

Example:
  % imprint env
`

func printenv(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("env", flag.ExitOnError)
	fset.Usage = usage(fset, envHelp)
	fset.Parse(args)

	home, err := appdir.Home()
	if err != nil {
		return err
	}
	statePath, err := appdir.StatePath()
	if err != nil {
		return err
	}
	vaultRoot, err := appdir.VaultRoot()
	if err != nil {
		return err
	}

	if fset.NArg() > 0 {
		switch fset.Arg(0) {
		case "IMPRINT_HOME":
			fmt.Println(home)
		case "IMPRINT_STATE":
			fmt.Println(statePath)
		case "IMPRINT_STORE":
			fmt.Println(vaultRoot)
		}
		return nil
	}

	fmt.Printf("IMPRINT_HOME=%q\n", home)
	fmt.Printf("IMPRINT_STATE=%q\n", statePath)
	fmt.Printf("IMPRINT_STORE=%q\n", vaultRoot)
	return nil
}
