package main

import (
	"os"

	"github.com/shopspring/decimal"

	"signal_bot/internal/cli"
)

func main() {
	decimal.DivisionPrecision = 32

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
