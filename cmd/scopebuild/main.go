package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/scopebuild/cmd/scopebuild/commands"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("scopebuild"),
		kong.Description("Build a static site from a tree of markup, static markup and page programs."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(commands.NewGlobal(), &cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
