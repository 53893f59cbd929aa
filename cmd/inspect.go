package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/utils"
)

// Inspect prints the header, sections and objects of an .m3g file.
func Inspect(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing m3g file argument")
	}
	path := ctx.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read %q", path)
	}
	f, err := m3g.DecodeBytes(data)
	if err != nil {
		return errors.Wrapf(err, "Failed to decode %q", path)
	}

	out := ctx.App.Writer
	fmt.Fprintf(out, "version %d.%d, authoring %q, external references %v\n",
		f.Header.Version[0], f.Header.Version[1], f.Header.Authoring, f.Header.HasExternalReferences)
	fmt.Fprintf(out, "file size %d, approximate content size %d\n", f.Header.TotalFileSize, f.Header.ApproximateContentSize)
	for i, s := range f.Sections {
		fmt.Fprintf(out, "section %d: compression %d, %d objects, length %d/%d, checksum %#08x\n",
			i, s.Compression, len(s.Objects), s.TotalLength, s.UncompressedLength, s.Checksum)
		for _, o := range s.Objects {
			fmt.Fprintf(out, "  %4d %-20s %d bytes\n", o.Index, o.TypeName(), len(o.Data))
		}
	}

	if ctx.Bool("layout") {
		fmt.Fprint(out, f.Layout())
	}
	if ctx.Bool("dump") {
		fmt.Fprint(out, utils.SDump(f.Header, f.Sections))
	}
	return nil
}
