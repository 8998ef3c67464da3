// Package main queues one analysis job and exits.
package main

import (
	"context"
	"flag"
	"os"

	enqueuecmd "github.com/attunelabs/attune/internal/cmd/enqueue"
	"github.com/attunelabs/attune/internal/platform/config"
)

func main() {
	cfg, err := enqueuecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := enqueuecmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("enqueue: %v", err)
	}
}
