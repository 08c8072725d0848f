//go:build windows

package main

import "os"

func terminalWidth(*os.File) int { return envColumns() }
