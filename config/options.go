package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultAuthoring = "Blender M3G Export"

const (
	ImageFormatAuto = "auto"
	ImageFormatRGB  = "rgb"
	ImageFormatRGBA = "rgba"
)

// Options controls what the exporter writes and how.
type Options struct {
	TextureEnabled        bool `yaml:"texture_enabled"`
	TextureExternal       bool `yaml:"texture_external"`
	LightingEnabled       bool `yaml:"lighting_enabled"`
	CreateAmbientLight    bool `yaml:"create_ambient_light"`
	Autoscaling           bool `yaml:"autoscaling"`
	PerspectiveCorrection bool `yaml:"perspective_correction"`
	SmoothShading         bool `yaml:"smooth_shading"`
	ExportAllActions      bool `yaml:"export_all_actions"`
	ExportAsJava          bool `yaml:"export_as_java"`
	Compress              bool `yaml:"compress"`

	ImageFormat  string `yaml:"image_format"`
	Authoring    string `yaml:"authoring"`
	JavaEncoding string `yaml:"java_encoding"`
}

func DefaultOptions() Options {
	return Options{
		TextureEnabled:  true,
		LightingEnabled: true,
		Autoscaling:     true,
		SmoothShading:   true,
		ImageFormat:     ImageFormatAuto,
		Authoring:       DefaultAuthoring,
	}
}

// ReadOptions decodes yaml on top of the defaults, so absent keys keep their default value.
func ReadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.NewDecoder(r).Decode(&opts); err != nil && err != io.EOF {
		return opts, errors.Wrapf(err, "Failed to decode options")
	}
	return opts, opts.Validate()
}

func LoadOptions(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultOptions(), errors.Wrapf(err, "Failed to open options file")
	}
	defer f.Close()

	opts, err := ReadOptions(f)
	if err != nil {
		return opts, errors.Wrapf(err, "%q", path)
	}
	return opts, nil
}

func (o Options) Validate() error {
	switch o.ImageFormat {
	case ImageFormatAuto, ImageFormatRGB, ImageFormatRGBA:
	default:
		return errors.Errorf("Unknown image format %q", o.ImageFormat)
	}
	if _, err := LookupEncoding(o.JavaEncoding); err != nil {
		return err
	}
	return nil
}

func (o Options) Marshal() ([]byte, error) {
	return yaml.Marshal(o)
}
