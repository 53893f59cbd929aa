package cmd

import (
	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/config"
)

// OptionFlags mirror config.Options. Set flags override the options file.
var OptionFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "options",
		Usage: "yaml file with export options",
	},
	cli.BoolFlag{Name: "texture", Usage: "export textures and texture coordinates (use --texture=false to disable)"},
	cli.BoolFlag{Name: "texture-external", Usage: "reference images as external files"},
	cli.BoolFlag{Name: "lighting", Usage: "export lights and normals (use --lighting=false to disable)"},
	cli.BoolFlag{Name: "ambient-light", Usage: "create an ambient light from the world color"},
	cli.BoolFlag{Name: "autoscaling", Usage: "use maximum precision for positions and texture coordinates"},
	cli.BoolFlag{Name: "perspective-correction", Usage: "enable perspective correction"},
	cli.BoolFlag{Name: "smooth-shading", Usage: "use smooth shading"},
	cli.BoolFlag{Name: "all-actions", Usage: "export every action of an armature"},
	cli.BoolFlag{Name: "java", Usage: "write java source instead of a binary file"},
	cli.BoolFlag{Name: "compress", Usage: "compress the scene section with zlib"},
	cli.StringFlag{Name: "image-format", Usage: "auto, rgb or rgba"},
	cli.StringFlag{Name: "authoring", Usage: "authoring field of the header"},
	cli.StringFlag{Name: "java-encoding", Usage: "charmap of java source, e.g. \"Windows 1251\""},
}

// readOptions loads the options file if any and applies flags that were set.
func readOptions(ctx *cli.Context) (config.Options, error) {
	opts := config.DefaultOptions()
	if path := ctx.String("options"); path != "" {
		var err error
		if opts, err = config.LoadOptions(path); err != nil {
			return opts, err
		}
	}

	bools := map[string]*bool{
		"texture":                &opts.TextureEnabled,
		"texture-external":       &opts.TextureExternal,
		"lighting":               &opts.LightingEnabled,
		"ambient-light":          &opts.CreateAmbientLight,
		"autoscaling":            &opts.Autoscaling,
		"perspective-correction": &opts.PerspectiveCorrection,
		"smooth-shading":         &opts.SmoothShading,
		"all-actions":            &opts.ExportAllActions,
		"java":                   &opts.ExportAsJava,
		"compress":               &opts.Compress,
	}
	for name, v := range bools {
		if ctx.IsSet(name) {
			*v = ctx.Bool(name)
		}
	}
	strs := map[string]*string{
		"image-format":  &opts.ImageFormat,
		"authoring":     &opts.Authoring,
		"java-encoding": &opts.JavaEncoding,
	}
	for name, v := range strs {
		if ctx.IsSet(name) {
			*v = ctx.String(name)
		}
	}

	return opts, opts.Validate()
}
