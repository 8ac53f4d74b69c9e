package main

import (
	"github.com/chess-vn/livechess/internal/app/server"
	"github.com/chess-vn/livechess/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	logging.Fatal("Game server exited: ", zap.Error(
		server.NewServer().Start(),
	))
}
