//go:build windows || plan9

package main

import "errors"

func openSyslog() (logOutput, error) {
	return nil, errors.New("syslog is not available on this platform, use --stdout")
}
