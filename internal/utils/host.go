package utils

import (
	"os"
	"sync"
)

var hostInstance string
var hostOnce sync.Once

// GetHost names this replica in logs. POD_NAME wins over the OS hostname.
func GetHost() string {
	hostOnce.Do(func() {
		hostInstance = resolveHost(os.Getenv, os.Hostname)
	})

	return hostInstance
}

func resolveHost(getenv func(string) string, hostname func() (string, error)) string {
	if pod := getenv("POD_NAME"); pod != "" {
		return pod
	}
	h, err := hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
