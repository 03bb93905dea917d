//go:build !windows && !plan9

package main

import "github.com/jnesss/mptevents/output"

func openSyslog() (logOutput, error) {
	s, err := output.NewSyslog()
	if err != nil {
		return nil, err
	}
	return s, nil
}
