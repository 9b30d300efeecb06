package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/quatton/photon/apps/photon/cmd"
	_ "github.com/quatton/photon/pkg/photon/builtin"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "photon crashed: %v\n", r)
			if os.Getenv("PHOTON_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
