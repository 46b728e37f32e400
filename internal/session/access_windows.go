//go:build windows

package session

import "os"

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}

	_ = f.Close()

	return true
}
