//go:build windows

package cmd

import (
	"errors"
	"os"
)

const ttyPath = "CONIN$"

var errNoTerminalPicker = errors.New("terminal pickers are not supported on Windows")

func checkTTY() error {
	return errNoTerminalPicker
}

func ttySize(*os.File) (int, int, error) {
	return 0, 0, errNoTerminalPicker
}

// getTermWidthIoctl returns 0 on Windows; width detection falls back to $COLUMNS.
func getTermWidthIoctl() int {
	return 0
}

func acquireLock(string) (int, error) {
	return -1, errNoTerminalPicker
}

func releaseLock(int) {}
