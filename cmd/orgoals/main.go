package main

import (
	"github.com/joho/godotenv"

	"github.com/seuros/orgoals/internal/cli"
)

func main() {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	cli.Execute()
}
