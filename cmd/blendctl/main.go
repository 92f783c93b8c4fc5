// Package main provides blendctl, the maintenance CLI for the Daily Blend
// selection store.
//
// blendctl opens the store the bot is configured with, so it reads the same
// flags, environment and .env file. Stop the bot first when the store is
// badger; it is single-process.
//
// Usage:
//
//	blendctl queue add 03-14 https://codex.rhythm.cafe/abc.rdzip
//	blendctl pool list -o yaml
//	blendctl token issue alice --role operator --ttl 720h
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
