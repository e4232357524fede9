/*
Package main is the entry point for the game-curator CLI.

game-curator curates a personal game library with AI: themed collection
suggestions, next-game picks, collection cover art and duplicate checks.

Usage:

	game-curator [command]

Available Commands:

	init        Write a default configuration file
	serve       Run the MCP server (stdio transport)
	suggest     Ask the model for collections or the next game to play
	cover       Generate cover art for a collection
	dup         Check a proposed collection against your existing ones
	cost        Estimate the cost of a task with your model settings
	library     Import and list the games in your library
	collection  Create and list your collections
	search      Search your library by meaning or keywords
	embed       Manage game embeddings
	prefs       Inspect and refresh learned taste signals
	settings    Manage your provider key and model routing
	activity    Show recent AI operations and their cost

A .env file in the working directory is loaded before configuration.
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/khanglvm/game-curator/internal/cli"
)

func main() {
	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
