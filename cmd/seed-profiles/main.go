// Package main imports sealed member profiles and exits.
package main

import (
	"context"
	"flag"
	"os"

	seedcmd "github.com/attunelabs/attune/internal/cmd/seedprofiles"
	"github.com/attunelabs/attune/internal/platform/config"
)

func main() {
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := seedcmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("seed profiles: %v", err)
	}
}
