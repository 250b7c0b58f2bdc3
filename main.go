package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/cmd"
	"github.com/RiptideSecurity/scour/pkg/logger"
	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/telemetry"
)

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	logger.Initialize(logger.DefaultConfig())

	if err := telemetry.Init(shared.AppID); err != nil {
		logger.L().Warn("Telemetry unavailable, continuing without spans", zap.Error(err))
	}

	cmd.Execute()
}
