// features.go - build/version info for the CLI's "version" subcommand
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"runtime"
)

const Version = "0.1.0"

func printFeatures() {
	fmt.Printf("x86core %s\n", Version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
