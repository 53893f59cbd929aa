package exporter

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/config"
	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/m3g/javasrc"
	"github.com/mogaika/m3g_exporter/scene"
)

// Exported is a translated scene ready to be written.
type Exported struct {
	World  *m3g.World
	Images map[m3g.Object]*scene.Image
	opts   config.Options
}

func Translate(s *scene.Scene, opts config.Options, reporter Reporter) (*Exported, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	t := NewTranslator(s, opts, reporter)
	world, err := t.Translate()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to translate scene %q", s.Name)
	}
	return &Exported{World: world, Images: t.Images(), opts: opts}, nil
}

// WriteM3G encodes the binary file.
func (e *Exported) WriteM3G(out io.Writer) error {
	var external uint32
	for o, img := range e.Images {
		if _, ok := o.(*m3g.ExternalReference); ok && img.Path != "" {
			if fi, err := os.Stat(img.Path); err == nil {
				external += uint32(fi.Size())
			}
		}
	}
	return m3g.Encode(out, e.World, m3g.EncodeOptions{
		Authoring:           e.opts.Authoring,
		Compress:            e.opts.Compress,
		ExternalContentSize: external,
	})
}

// WriteJava writes the scene as class className.
func (e *Exported) WriteJava(out io.Writer, className string) error {
	cm, err := config.LookupEncoding(e.opts.JavaEncoding)
	if err != nil {
		return err
	}
	return javasrc.Write(out, e.World, javasrc.Options{
		ClassName: className,
		Charmap:   cm,
		ImageResource: func(o m3g.Object) string {
			return e.Images[o].FileName()
		},
	})
}

// ImageFiles lists files that must be shipped with the output, keyed by file name.
// Binary output needs the external references only, java source every image.
func (e *Exported) ImageFiles(java bool) map[string]*scene.Image {
	files := make(map[string]*scene.Image)
	for o, img := range e.Images {
		if _, ok := o.(*m3g.ExternalReference); ok || java {
			files[img.FileName()] = img
		}
	}
	return files
}

// ReadImageFile returns the file content of img, encoding decoded pixels as png.
func ReadImageFile(img *scene.Image) ([]byte, error) {
	if img.Path != "" {
		if data, err := os.ReadFile(img.Path); err == nil {
			return data, nil
		}
	}
	data, err := img.Decode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "Failed to encode image %q", img.Name)
	}
	return buf.Bytes(), nil
}

// ClassName turns a file name into a java identifier.
func ClassName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var sb strings.Builder
	for i, r := range base {
		switch {
		case unicode.IsLetter(r) || r == '_' || r == '$':
			sb.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				sb.WriteRune('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "M3GScene"
	}
	return sb.String()
}

// ExportFile writes the scene to path, java source when opts.ExportAsJava,
// and copies referenced images next to it.
func ExportFile(path string, s *scene.Scene, opts config.Options, reporter Reporter) error {
	e, err := Translate(s, opts, reporter)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if opts.ExportAsJava {
		err = e.WriteJava(&buf, ClassName(path))
	} else {
		err = e.WriteM3G(&buf)
	}
	if err != nil {
		return errors.Wrapf(err, "Failed to encode %q", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0666); err != nil {
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	logger.Noticef("written %s (%d bytes)", path, buf.Len())

	dir := filepath.Dir(path)
	for name, img := range e.ImageFiles(opts.ExportAsJava) {
		target := filepath.Join(dir, name)
		if img.Path != "" {
			if abs, err := filepath.Abs(img.Path); err == nil {
				if absTarget, err := filepath.Abs(target); err == nil && abs == absTarget {
					continue
				}
			}
		}
		data, err := ReadImageFile(img)
		if err != nil {
			logger.Warningf("image %q not copied: %v", name, err)
			continue
		}
		if err := os.WriteFile(target, data, 0666); err != nil {
			return errors.Wrapf(err, "Failed to write image %q", target)
		}
		logger.Infof("image %s copied", target)
	}
	return nil
}
