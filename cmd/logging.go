package cmd

import (
	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/log"
)

var logger = log.New("m3g_exporter")

// setupLogging applies -v and -vv, then the per module --log-level list.
func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	return log.ParseLevels(ctx.GlobalString("log-level"))
}

// progressLogger prints translator progress at info level.
type progressLogger struct{}

func (progressLogger) Progress(done, total int, what string) {
	logger.Infof("[%d/%d] %s", done, total, what)
}
