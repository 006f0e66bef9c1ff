package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/whisper/chatroom/internal/app"
	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/tui"
)

var (
	delay time.Duration
	seed  uint64
)

var rootCmd = &cobra.Command{
	Use:   "chatui",
	Short: "Terminal chat room with a scripted bot",
	Long: `chatui runs the chat room in the terminal.

Log in with any username, then chat. ChatBot answers every message after a
short delay. Press esc to log out and ctrl+c to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if delay <= 0 {
			return fmt.Errorf("--delay must be positive, got %s", delay)
		}
		model := tui.New(app.Config{
			Responder: bot.NewDefaultSelector(seed),
			Delay:     delay,
		})
		defer model.App().Close()

		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("chatui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().DurationVar(&delay, "delay", bot.DefaultDelay, "delay before ChatBot replies")
	rootCmd.Flags().Uint64Var(&seed, "seed", 0, "seed for ChatBot's choices (0 picks a random seed)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
