package cmd

import (
	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/web"
)

// Serve starts the http adapter over a directory of models.
func Serve(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	return web.StartServer(ctx.String("addr"), ctx.String("dir"))
}
