// Command mptevents-offline re-parses a debug capture written by mptevents -d
// and prints the events as the daemon would have reported them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/jnesss/mptevents/capture"
	"github.com/jnesss/mptevents/mpi"
)

func main() {
	name := filepath.Base(os.Args[0])

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	logSize := fs.Int("event-log-size", mpi.DefaultEventLogSize, "Number of records per snapshot in the capture.")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "\nmptevents-offline\nUsage:\n\t%s <file>\n\tFor example %s %s\n\nOptions:\n%s", name, name, capture.DefaultPath, fs.FlagUsages())
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(1)
	}
	if fs.NArg() != 1 || *logSize <= 0 {
		fs.Usage()
		os.Exit(1)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open debug file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := replay(f, os.Stdout, *logSize); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		f.Close()
		os.Exit(1)
	}
}
