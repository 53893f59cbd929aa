package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/preview/fbxpreview"
	"github.com/mogaika/m3g_exporter/preview/gltfpreview"
	"github.com/mogaika/m3g_exporter/scene/loader"
)

// Preview writes the imported scene as fbx or glb, to check what the
// importer sees before exporting.
func Preview(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing model file argument")
	}
	input := ctx.Args().First()
	format := strings.ToLower(ctx.String("format"))
	switch format {
	case "fbx", "glb":
	default:
		return errors.Errorf("Unknown preview format %q", format)
	}

	out := ctx.String("out")
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".preview." + format
	}

	s, err := loader.Load(input)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", out)
	}
	defer f.Close()

	if format == "fbx" {
		err = fbxpreview.Export(f, s, filepath.Base(out))
	} else {
		err = gltfpreview.Export(f, s)
	}
	if err != nil {
		return errors.Wrapf(err, "Failed to write %q", out)
	}
	logger.Noticef("written %s", out)
	return nil
}
