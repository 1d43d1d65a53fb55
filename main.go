package main

import (
	"os"
	"quiz_arena_backend/internal/cli"
)

// @title Quiz Arena API
// @version 1.0
// @description Backend for timed multiple-choice quiz competitions between teams.
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
