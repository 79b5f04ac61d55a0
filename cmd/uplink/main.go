// Command uplink is the Nmap Uplink web front-end and command line.
package main

import "github.com/anstrom/uplink/cmd/cli"

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildTime=...".
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
