package objscene

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/scene"
)

// loadMaterials reads an MTL library next to the OBJ file. A missing library
// only warns so geometry still gets exported with default materials.
func (rd *reader) loadMaterials(lib string) error {
	path := filepath.Join(rd.dir, filepath.FromSlash(lib))
	f, err := os.Open(path)
	if err != nil {
		logger.Warningf("skipping material library %q: %v", lib, err)
		return nil
	}
	defer f.Close()
	return rd.parseMaterials(f, lib)
}

func (rd *reader) parseMaterials(r io.Reader, file string) error {
	var curMaterial *scene.Material
	lineNum := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		if lineTokens[0] == "newmtl" {
			if len(lineTokens) != 2 {
				return errors.Errorf("[%s: %d] unsupported syntax for 'newmtl'; expected 1 argument; got %d", file, lineNum, len(lineTokens)-1)
			}
			curMaterial = scene.NewMaterial(lineTokens[1])
			rd.materials[curMaterial.Name] = curMaterial
			continue
		}
		if curMaterial == nil {
			return errors.Errorf("[%s: %d] got %q without a 'newmtl'", file, lineNum, lineTokens[0])
		}

		var err error
		switch lineTokens[0] {
		case "Kd":
			var v [3]float32
			if v, err = parseVec3(lineTokens); err == nil {
				curMaterial.Diffuse = [4]float32{v[0], v[1], v[2], curMaterial.Diffuse[3]}
			}
		case "Ka":
			var v [3]float32
			if v, err = parseVec3(lineTokens); err == nil {
				curMaterial.Ambient = v
			}
		case "Ks":
			var v [3]float32
			if v, err = parseVec3(lineTokens); err == nil {
				curMaterial.Specular = v
			}
		case "Ke":
			var v [3]float32
			if v, err = parseVec3(lineTokens); err == nil {
				curMaterial.Emissive = v
			}
		case "Ns":
			var ns float32
			if ns, err = parseFloat32(lineTokens); err == nil {
				// 0..1000 exponent range
				curMaterial.Shininess = clamp(ns*128/1000, 0, 128)
			}
		case "d", "Tr":
			var d float32
			if d, err = parseFloat32(lineTokens); err == nil {
				if lineTokens[0] == "Tr" {
					d = 1 - d
				}
				curMaterial.Diffuse[3] = clamp(d, 0, 1)
				if d < 1 {
					curMaterial.Alpha = scene.AlphaBlend
				} else {
					curMaterial.Alpha = scene.AlphaOpaque
				}
			}
		case "illum":
			if len(lineTokens) > 1 && lineTokens[1] == "0" {
				curMaterial.Shadeless = true
			}
		case "map_Kd":
			if len(lineTokens) < 2 {
				err = errors.Errorf("unsupported syntax for 'map_Kd'; expected 1 argument; got 0")
				break
			}
			curMaterial.Texture = rd.texture(lineTokens[len(lineTokens)-1])
		default:
			logger.Debugf("%s:%d: skipping %q", file, lineNum, lineTokens[0])
		}
		if err != nil {
			return errors.Wrapf(err, "[%s: %d]", file, lineNum)
		}
	}
	return errors.Wrapf(scanner.Err(), "Failed to read %s", file)
}

// texture references an image relative to the OBJ file. Materials using the
// same file share the image. Images are decoded on export, so a missing file
// is only reported here.
func (rd *reader) texture(file string) *scene.Texture {
	path := filepath.Join(rd.dir, filepath.FromSlash(file))
	img, ok := rd.images[path]
	if !ok {
		if _, err := os.Stat(path); err != nil {
			logger.Warningf("texture %q: %v", file, err)
		}
		base := filepath.Base(path)
		img = &scene.Image{
			Name: strings.TrimSuffix(base, filepath.Ext(base)),
			Path: path,
		}
		rd.images[path] = img
	}
	return &scene.Texture{
		Image:  img,
		Filter: scene.FilterLinear,
	}
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
