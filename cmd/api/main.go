package main

import (
	"os"

	"github.com/rusl-cricket/attendance/cmd/api/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
