package main

import (
	"log"
	"os"

	"lojaonline/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if len(os.Args) == 1 {
		cmd.SetArgs([]string{"serve"})
	}
	if err := cmd.Execute(); err != nil {
		log.Fatalf("loja: %v", err)
	}
}
