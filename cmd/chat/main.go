package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"minichat/internal/chatclient"
	"minichat/internal/config"
	"minichat/internal/controller"
	"minichat/internal/ui"
	"minichat/internal/util"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.LoadClient(os.Getenv("MINICHAT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The alternate screen owns the terminal, so logs go to a file or
	// nowhere at all.
	logWriter := io.Writer(io.Discard)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter = f
	}
	logger := util.InitLoggerTo(logWriter, cfg.LogLevel)

	client := chatclient.NewClient(cfg.ServerURL, cfg.Token)

	// Sign-in gate: resolve the profile before any chat state exists.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	who, err := client.Me(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sign-in failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "Obtain a token from your identity provider and set MINICHAT_TOKEN (or token in chat.yaml), then try again.")
		os.Exit(1)
	}

	ctrl := controller.New(client, who, logger)
	model := ui.NewModel(ctrl, who)
	program := tea.NewProgram(model, tea.WithAltScreen())
	model.Attach(program)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}
