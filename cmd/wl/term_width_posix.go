//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminalWidth reports the column count of the terminal behind f, falling
// back to $COLUMNS. 0 means unknown.
func terminalWidth(f *os.File) int {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err == nil && ws != nil && ws.Col > 0 {
		return int(ws.Col)
	}
	return envColumns()
}
