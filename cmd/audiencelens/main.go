package main

import (
	"audiencelens/cmd/handlers"
	"audiencelens/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
