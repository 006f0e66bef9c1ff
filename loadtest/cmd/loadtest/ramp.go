package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/whisper/chatroom/loadtest/client"
	"github.com/whisper/chatroom/loadtest/stats"
)

// rampOptions controls how connections are opened.
type rampOptions struct {
	url         string
	total       int
	rampUp      time.Duration
	concurrency int
	label       string // progress line prefix
}

// ramp opens opts.total sessions spread over opts.rampUp, bounding the number
// of simultaneous dial attempts. Each session is passed to setup after the
// handshake; a setup error counts as a failed connection. The second return
// value reports whether ctx was cancelled before all sessions were launched.
func ramp(ctx context.Context, opts rampOptions, collector *stats.Collector,
	setup func(ctx context.Context, c *client.Client, n int) error) ([]*client.Client, bool) {

	interval := opts.rampUp / time.Duration(opts.total)
	if interval <= 0 {
		interval = time.Millisecond
	}

	var mu sync.Mutex
	clients := make([]*client.Client, 0, opts.total)

	sem := make(chan struct{}, opts.concurrency)
	var wg sync.WaitGroup

	progressStop := make(chan struct{})
	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		lastCount := 0
		lastTime := time.Now()
		for {
			select {
			case <-ticker.C:
				now := time.Now()
				current := collector.ConnectionCount()
				rate := float64(current-lastCount) / now.Sub(lastTime).Seconds()
				fmt.Printf("  [%s] connections: %d/%d  errors: %d  rate: %.1f conn/s\n",
					opts.label, current, opts.total, collector.ErrorCount(), rate)
				lastCount = current
				lastTime = now
			case <-progressStop:
				return
			}
		}
	}()

	rampStart := time.Now()
	ticker := time.NewTicker(interval)
	interrupted := false

launch:
	for n := 0; n < opts.total; n++ {
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted during ramp-up.")
			interrupted = true
			break launch
		case <-ticker.C:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(n int) {
			defer wg.Done()
			defer func() { <-sem }()

			connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			c, err := client.New(connCtx, opts.url)
			if err != nil {
				collector.AddError()
				return
			}
			if _, err := c.WaitForSession(connCtx); err != nil {
				collector.AddError()
				c.Close()
				return
			}
			if setup != nil {
				if err := setup(connCtx, c, n); err != nil {
					collector.AddError()
					c.Close()
					return
				}
			}

			collector.AddConnect(c.GetMetrics().ConnectLatency)
			mu.Lock()
			clients = append(clients, c)
			mu.Unlock()
		}(n)
	}

	ticker.Stop()
	wg.Wait()
	close(progressStop)
	progressWg.Wait()

	fmt.Printf("\nRamp-up complete: %d/%d connections in %s (%d errors)\n",
		collector.ConnectionCount(), opts.total,
		time.Since(rampStart).Round(time.Millisecond), collector.ErrorCount())

	return clients, interrupted
}

// closeAll closes every client.
func closeAll(clients []*client.Client) {
	fmt.Printf("Closing %d connections...\n", len(clients))
	for _, c := range clients {
		c.Close()
	}
}

// alive counts clients whose read loop is still running.
func alive(clients []*client.Client) int {
	n := 0
	for _, c := range clients {
		select {
		case <-c.Done():
		default:
			n++
		}
	}
	return n
}
