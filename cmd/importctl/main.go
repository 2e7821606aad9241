package main

import (
	"os"

	"github.com/SscSPs/txn_ingest/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
