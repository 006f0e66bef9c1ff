package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/whisper/chatroom/loadtest/stats"
)

// newSaturateCmd builds the connection saturation test. It opens many
// sessions, ramping up over a configurable duration, then holds them open
// while watching for drops.
func newSaturateCmd() *cobra.Command {
	var (
		url         string
		connections int
		rampUp      time.Duration
		hold        time.Duration
		concurrency int
		login       bool
	)

	cmd := &cobra.Command{
		Use:   "saturate",
		Short: "Open N idle sessions and hold them",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Saturate test: %d connections to %s (ramp=%s, hold=%s, concurrency=%d, login=%t)\n",
				connections, url, rampUp, hold, concurrency, login)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()

			fmt.Println("\n--- Ramp-up phase ---")
			clients, interrupted := ramp(ctx, rampOptions{
				url:         url,
				total:       connections,
				rampUp:      rampUp,
				concurrency: concurrency,
				label:       "ramp",
			}, collector, loginSetup(login, collector))

			var dropped int
			if !interrupted {
				fmt.Println("\n--- Hold phase ---")
				initial := len(clients)
				fmt.Printf("Holding %d connections for %s...\n", initial, hold)
				dropped = holdOpen(ctx, hold, func() (int, int) {
					n := alive(clients)
					return n, initial - n
				})
			}

			fmt.Println("\n--- Cleanup ---")
			closeAll(clients)

			if dropped > 0 {
				fmt.Printf("\nConnections dropped during hold: %d\n", dropped)
			}
			collector.Report(os.Stdout)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&url, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	f.IntVar(&connections, "connections", 1000, "Number of connections to open")
	f.DurationVar(&rampUp, "ramp", 10*time.Second, "Ramp-up duration")
	f.DurationVar(&hold, "hold", 30*time.Second, "Hold duration after all connections are open")
	f.IntVar(&concurrency, "concurrency", 50, "Maximum simultaneous connection attempts during ramp-up")
	f.BoolVar(&login, "login", false, "Log every session in before holding")
	return cmd
}

// holdOpen waits for d (or ctx), printing liveness every 5 seconds. It
// returns the last observed drop count.
func holdOpen(ctx context.Context, d time.Duration, status func() (alive, dropped int)) int {
	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	_, dropped := status()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted during hold phase.")
			return dropped
		case <-timer.C:
			fmt.Println("\nHold period complete.")
			_, dropped = status()
			return dropped
		case <-ticker.C:
			var n int
			n, dropped = status()
			fmt.Printf("  [hold] alive: %d  dropped: %d\n", n, dropped)
		}
	}
}
