package main

import (
	"fmt"
	"os"

	"github.com/politusanalytics/hdfs/internal/cli"
	"github.com/politusanalytics/hdfs/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	if err := cli.Execute(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
