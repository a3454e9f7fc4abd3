// cmd/qcc/main.go
package main

import (
	"fmt"
	"os"

	"qcc/internal/ccconfig"
	"qcc/internal/cerr"
	"qcc/internal/driver"
)

const version = "0.1.0"

func main() {
	defer cerr.Guard()

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "--version" || args[0] == "-version") {
		fmt.Printf("qcc %s\n", version)
		return
	}

	cfg, err := ccconfig.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qcc: %s\n", err)
		os.Exit(2)
	}
	cerr.TrapInternal = cfg.TrapInternal

	d := driver.New(cfg)
	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "qcc: %s\n", err)
		os.Exit(1)
	}
}
