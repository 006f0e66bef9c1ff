// Package main is the entry point for the chatroom load test binary.
// It provides subcommands for different load testing scenarios:
//
//   - saturate: open N idle sessions and hold them
//   - chat:     log in, send messages and measure ChatBot reply latency
//
// Usage:
//
//	loadtest <command> [flags]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "loadtest",
		Short:         "Load tests for the chatroom WebSocket gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSaturateCmd(), newChatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
