package cmd

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/exporter"
	"github.com/mogaika/m3g_exporter/scene/loader"
)

// Convert exports a model as .m3g or .java.
func Convert(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing model file argument")
	}
	input := ctx.Args().First()

	opts, err := readOptions(ctx)
	if err != nil {
		return err
	}

	out := ctx.String("out")
	if out == "" {
		ext := ".m3g"
		if opts.ExportAsJava {
			ext = ".java"
		}
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ext
	}

	s, err := loader.Load(input)
	if err != nil {
		return err
	}
	logger.Infof("scene %s", s.Stats())

	return exporter.ExportFile(out, s, opts, progressLogger{})
}
