package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/whisper/chatroom/internal/app"
	"github.com/whisper/chatroom/loadtest/client"
	"github.com/whisper/chatroom/loadtest/stats"
)

// loginSetup returns a ramp setup step that logs each session in as
// user-<n>. It returns nil when login is false.
func loginSetup(login bool, collector *stats.Collector) func(context.Context, *client.Client, int) error {
	if !login {
		return nil
	}
	return func(ctx context.Context, c *client.Client, n int) error {
		if _, err := c.NextView(ctx); err != nil {
			return err
		}
		v, err := c.Login(ctx, fmt.Sprintf("user-%d", n))
		if err != nil {
			return err
		}
		if v.Route != string(app.RouteChat) {
			return fmt.Errorf("login: unexpected route %q", v.Route)
		}
		collector.AddLogin()
		return nil
	}
}

// newChatCmd builds the chat lifecycle test: every session logs in, sends a
// message at a fixed interval for a while, waits for the outstanding ChatBot
// replies and logs out.
func newChatCmd() *cobra.Command {
	var (
		url            string
		users          int
		rampUp         time.Duration
		chatDuration   time.Duration
		msgInterval    time.Duration
		greetEvery     int
		concurrency    int
		drainTimeout   time.Duration
		metricsURL     string
		scrapeInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Log in, send messages and measure ChatBot reply latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Chat test: %d users to %s (ramp=%s, chat=%s, interval=%s, concurrency=%d)\n",
				users, url, rampUp, chatDuration, msgInterval, concurrency)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			if metricsURL != "" {
				scraper := stats.NewScraper(metricsURL, scrapeInterval)
				collector.SetScraper(scraper)
				scraper.Start(ctx)
				defer scraper.Stop()
			}

			fmt.Println("\n--- Phase 1: Connect and log in ---")
			clients, interrupted := ramp(ctx, rampOptions{
				url:         url,
				total:       users,
				rampUp:      rampUp,
				concurrency: concurrency,
				label:       "connect",
			}, collector, loginSetup(true, collector))

			if !interrupted {
				fmt.Println("\n--- Phase 2: Chat ---")
				chatCtx, cancel := context.WithTimeout(ctx, chatDuration)
				var wg sync.WaitGroup
				for i, c := range clients {
					wg.Add(1)
					go func(i int, c *client.Client) {
						defer wg.Done()
						chatLoop(chatCtx, c, i, msgInterval, greetEvery, collector)
					}(i, c)
				}
				wg.Wait()
				cancel()

				fmt.Println("\n--- Phase 3: Drain replies and log out ---")
				drainCtx, cancelDrain := context.WithTimeout(ctx, drainTimeout)
				for _, c := range clients {
					wg.Add(1)
					go func(c *client.Client) {
						defer wg.Done()
						drain(drainCtx, c, collector)
					}(c)
				}
				wg.Wait()
				cancelDrain()
			}

			fmt.Println("\n--- Cleanup ---")
			closeAll(clients)
			collector.Report(os.Stdout)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&url, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	f.IntVar(&users, "users", 100, "Number of simulated users")
	f.DurationVar(&rampUp, "ramp", 10*time.Second, "Ramp-up duration for connection creation")
	f.DurationVar(&chatDuration, "chat-duration", 30*time.Second, "How long each user chats")
	f.DurationVar(&msgInterval, "msg-interval", 2*time.Second, "Interval between messages per user")
	f.IntVar(&greetEvery, "greet-every", 4, "Send a greeting every Nth message (0 disables)")
	f.IntVar(&concurrency, "concurrency", 50, "Maximum simultaneous connection attempts during ramp-up")
	f.DurationVar(&drainTimeout, "drain-timeout", 5*time.Second, "How long to wait for outstanding replies")
	f.StringVar(&metricsURL, "metrics-url", "http://localhost:8080/metrics", "Prometheus metrics endpoint URL (empty disables scraping)")
	f.DurationVar(&scrapeInterval, "scrape-interval", 2*time.Second, "Interval between metrics scrapes")
	return cmd
}

// chatLoop sends one message per interval until ctx is done.
func chatLoop(ctx context.Context, c *client.Client, user int, interval time.Duration, greetEvery int, collector *stats.Collector) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			collector.AddError()
			return
		case <-ticker.C:
		}

		if err := c.SendText(messageText(user, n, greetEvery)); err != nil {
			collector.AddError()
			return
		}
		collector.AddSent()
	}
}

// messageText returns the n-th message of a user. Every greetEvery-th message
// contains a greeting so both reply tables are exercised.
func messageText(user, n, greetEvery int) string {
	if greetEvery > 0 && n%greetEvery == 0 {
		return fmt.Sprintf("Hello from user-%d (#%d)", user, n)
	}
	return fmt.Sprintf("message %d from user-%d", n, user)
}

// drain waits until every sent message has been answered, then logs out and
// records the client's reply latencies.
func drain(ctx context.Context, c *client.Client, collector *stats.Collector) {
	defer func() {
		collector.AddReplyLatencies(c.GetMetrics().ReplyLatencies)
	}()

	for {
		m := c.GetMetrics()
		// login counts as one sent frame
		if len(m.ReplyLatencies) >= m.MessagesSent-1 {
			break
		}
		if _, err := c.NextReply(ctx); err != nil {
			collector.AddError()
			return
		}
	}

	if _, err := c.Logout(ctx); err != nil {
		collector.AddError()
	}
}
