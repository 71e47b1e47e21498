package main

import (
	"os"

	"github.com/mensylisir/xmrecipe/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
