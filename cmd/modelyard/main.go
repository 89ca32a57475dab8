package main

import (
	"github.com/modelyard/modelyard/pkg/cli"
	"github.com/modelyard/modelyard/pkg/util/console"
)

func main() {
	cmd, err := cli.NewRootCommand()
	if err != nil {
		console.Fatalf("%s", err)
	}

	if err = cmd.Execute(); err != nil {
		console.Fatalf("%s", err)
	}
}
