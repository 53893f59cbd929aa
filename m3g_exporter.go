package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/cmd"
	"github.com/mogaika/m3g_exporter/log"
)

func main() {
	app := cli.NewApp()
	app.Name = "m3g_exporter"
	app.Usage = "convert glTF and OBJ scenes to M3G (JSR184) files or java source"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "levels per module, e.g. \"notice,web=debug\"",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "convert",
			Usage: "convert a scene to .m3g or .java",
			Description: `
Load a .gltf, .glb or .obj scene and write it as a M3G file. Export options are
read from the --options yaml file and then overridden by the flags that were set.`,
			ArgsUsage: "scene_file",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output file, defaults to the input with .m3g or .java extension",
				},
			}, cmd.OptionFlags...),
			Action: cmd.Convert,
		},
		{
			Name:      "inspect",
			Usage:     "print the structure of a .m3g file",
			ArgsUsage: "file.m3g",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "layout",
					Usage: "print byte layout of every object",
				},
				cli.BoolFlag{
					Name:  "dump",
					Usage: "dump decoded structures",
				},
			},
			Action: cmd.Inspect,
		},
		{
			Name:      "preview",
			Usage:     "write the imported scene as fbx or glb",
			ArgsUsage: "scene_file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "format, f",
					Value: "glb",
					Usage: "fbx or glb",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output file",
				},
			},
			Action: cmd.Preview,
		},
		{
			Name:  "serve",
			Usage: "serve conversions over http",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "addr, i",
					Value: ":8000",
					Usage: "address of server",
				},
				cli.StringFlag{
					Name:  "dir",
					Value: ".",
					Usage: "directory with models",
				},
			},
			Action: cmd.Serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("m3g_exporter").Error(err)
		os.Exit(1)
	}
}
