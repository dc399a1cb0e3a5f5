package main

import (
	"log"
	"os"

	"github.com/SscSPs/bank_ledger/cmd/ledgerctl/migrate"
	"github.com/SscSPs/bank_ledger/cmd/ledgerctl/stress"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ledgerctl",
		Usage: "bank ledger maintenance and load tooling",
		Commands: []*cli.Command{
			migrate.New(),
			stress.New(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
