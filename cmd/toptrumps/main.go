package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Host a shared match store over WebSocket"`
	Simulate SimulateCmd      `cmd:"" help:"Play an all-bot match in process"`
	Bot      BotCmd           `cmd:"" help:"Seat a bot in a match on a remote server"`
	Match    MatchCmd         `cmd:"" help:"Start, play and watch matches on a remote server"`
	Decks    DecksCmd         `cmd:"" help:"List the deck catalog"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("toptrumps"),
		kong.Description("Top trumps matches for humans and bots over a shared document store"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
