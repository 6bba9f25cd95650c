// Package main is the entry point for the osia CLI.
//
// osia provisions the cloud resources an OpenShift installer run needs,
// registers the cluster DNS records, drives the installer and tears all of
// it down again on clean.
//
// Commands: install, clean, doctor, version.
//
// For detailed usage information, run:
//
//	osia --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/osia/cmd/osia/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
