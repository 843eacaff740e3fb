package main

import (
	"fmt"
	"os"

	"github.com/chararch/srcbatch/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
