// Package loader picks a scene importer by file extension.
package loader

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/scene/gltfscene"
	"github.com/mogaika/m3g_exporter/scene/objscene"
)

type loaderFunc func(path string) (*scene.Scene, error)

var loaders = map[string]loaderFunc{
	".gltf": gltfscene.Load,
	".glb":  gltfscene.Load,
	".obj":  objscene.Load,
}

// Supported reports whether a file can be loaded judging by its name.
func Supported(name string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions lists the accepted extensions.
func Extensions() []string {
	result := make([]string, 0, len(loaders))
	for ext := range loaders {
		result = append(result, ext)
	}
	sort.Strings(result)
	return result
}

func Load(path string) (*scene.Scene, error) {
	ext := strings.ToLower(filepath.Ext(path))
	load, ok := loaders[ext]
	if !ok {
		return nil, errors.Errorf("Unsupported file type %q, expected one of %s", ext, strings.Join(Extensions(), " "))
	}
	s, err := load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load %q", path)
	}
	return s, nil
}
