// Melvinctl is the command-line client for monitoring a running melvind
// instance. It connects over HTTP to query status and dashboard state, and
// over the TCP console to inspect the live task queue.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/ciaryc/melvin/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "melvind dashboard URL")
		console = pflag.String("console", "127.0.0.1:1337", "melvind TCP console address")
	)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd := pflag.Arg(0)

	var err error
	switch cmd {
	case "status":
		err = ctl.Status(*host)
	case "health":
		err = ctl.Health(*host)
	case "version":
		err = ctl.Version(*host)
	case "config":
		err = ctl.Config(*host)
	case "beacons":
		err = ctl.Beacons(*host)
	case "tasks":
		err = ctl.Tasks(*console)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  melvinctl — MELVIN mission-control CLI

  USAGE
    melvinctl [flags] <command>

  COMMANDS
    status    Show flight state, mode switches, battery, fuel, and position
    health    Check daemon reachability
    version   Show daemon build version
    config    Show the daemon's running configuration
    beacons   Show active/completed beacon localization objectives
    tasks     Show the live task queue from the TCP console

  GLOBAL FLAGS
    -H, --host URL       melvind dashboard URL (default: http://127.0.0.1:8080)
        --console ADDR   melvind TCP console address (default: 127.0.0.1:1337)

  EXAMPLES
    melvinctl status
    melvinctl tasks
    melvinctl --host http://192.168.8.1:8080 beacons

`)
}
