// Command inventoryctl checks inventory spreadsheets offline and runs
// database maintenance for the inventory service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
