package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/cli"
	"github.com/voicenav/voice-gateway/internal/client"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/config"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadCLI()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	table, err := command.LoadTable(cfg.CommandsFile)
	if err != nil {
		return err
	}

	logger := zerolog.Nop()
	if level := os.Getenv("VOICENAV_LOG_LEVEL"); level != "" {
		observability.InitLogger(level, true)
		logger = observability.Component("cli")
	}

	deps := &cli.Dependencies{
		Config:      cfg,
		Interpreter: command.NewInterpreter(table),
		Client:      client.New(cfg.ServerURL, nil),
		Logger:      logger,
	}

	return cli.NewRootCmd(deps).Execute()
}
