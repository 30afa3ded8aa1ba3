package main

import (
	"context"

	"orbitbot/cmd/orbit-cli/commands"
	"orbitbot/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "orbit-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
