// Package objscene builds an intermediate scene from Wavefront OBJ and MTL files.
package objscene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/log"
	"github.com/mogaika/m3g_exporter/scene"
)

var logger = log.New("objscene")

type reader struct {
	dir string
	s   *scene.Scene

	materials   map[string]*scene.Material
	images      map[string]*scene.Image
	curMaterial *scene.Material
	smooth      bool

	obj *scene.Object
	// local vertex per position and normal index of the current object
	vertexMap map[[2]int]int

	vertexList []mgl32.Vec3
	normalList []mgl32.Vec3
	uvList     []mgl32.Vec2
}

// Load reads an OBJ file. Material libraries and textures are resolved
// relative to it.
func Load(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Read(f, name, filepath.Dir(path))
}

// Read parses OBJ text. Every "o" statement starts a new mesh object; faces
// before the first one go to an object named after the scene.
func Read(r io.Reader, name, dir string) (*scene.Scene, error) {
	rd := &reader{
		dir:        dir,
		s:          scene.NewScene(name),
		materials:  make(map[string]*scene.Material),
		images:     make(map[string]*scene.Image),
		vertexList: make([]mgl32.Vec3, 0),
		normalList: make([]mgl32.Vec3, 0),
		uvList:     make([]mgl32.Vec2, 0),
	}
	if err := rd.parse(r, name); err != nil {
		return nil, err
	}
	for _, o := range rd.s.Objects {
		o.Mesh.CalcFaceNormals()
		o.Mesh.CalcVertexNormals()
	}
	logger.Infof("loaded %s", strings.TrimSpace(rd.s.Stats()))
	return rd.s, nil
}

func (rd *reader) parse(r io.Reader, file string) error {
	lineNum := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		var err error
		switch lineTokens[0] {
		case "mtllib":
			for _, lib := range lineTokens[1:] {
				if err = rd.loadMaterials(lib); err != nil {
					break
				}
			}
		case "usemtl":
			if len(lineTokens) != 2 {
				err = errors.Errorf("unsupported syntax for 'usemtl'; expected 1 argument; got %d", len(lineTokens)-1)
				break
			}
			mat, ok := rd.materials[lineTokens[1]]
			if !ok {
				logger.Warningf("%s:%d: undefined material %q", file, lineNum, lineTokens[1])
				mat = scene.NewMaterial(lineTokens[1])
				rd.materials[mat.Name] = mat
			}
			rd.curMaterial = mat
		case "v":
			var v mgl32.Vec3
			if v, err = parseVec3(lineTokens); err == nil {
				rd.vertexList = append(rd.vertexList, v)
			}
		case "vn":
			var v mgl32.Vec3
			if v, err = parseVec3(lineTokens); err == nil {
				rd.normalList = append(rd.normalList, v)
			}
		case "vt":
			var v mgl32.Vec2
			if v, err = parseVec2(lineTokens); err == nil {
				rd.uvList = append(rd.uvList, v)
			}
		case "o":
			if len(lineTokens) < 2 {
				err = errors.Errorf("unsupported syntax for 'o'; expected 1 argument for object name; got %d", len(lineTokens)-1)
				break
			}
			rd.newObject(strings.Join(lineTokens[1:], " "))
		case "s":
			rd.smooth = len(lineTokens) > 1 && lineTokens[1] != "off" && lineTokens[1] != "0"
		case "f":
			err = rd.parseFace(lineTokens)
		case "g", "l", "p", "vp":
			// groups do not split objects, lines and points carry no surface
		default:
			logger.Debugf("%s:%d: skipping %q", file, lineNum, lineTokens[0])
		}
		if err != nil {
			return errors.Wrapf(err, "[%s: %d]", file, lineNum)
		}
	}
	return errors.Wrapf(scanner.Err(), "Failed to read %s", file)
}

func (rd *reader) newObject(name string) {
	rd.obj = rd.s.AddObject(&scene.Object{
		Name:        name,
		Type:        scene.ObjectMesh,
		MatrixWorld: mgl32.Ident4(),
		Mesh:        &scene.Mesh{Name: name},
	})
	rd.vertexMap = make(map[[2]int]int)
}

// parseFace reads a polygon of three or more corners. Each corner is one of
// v, v/vt, v//vn or v/vt/vn with 1 based or negative indices.
func (rd *reader) parseFace(lineTokens []string) error {
	if len(lineTokens) < 4 {
		return errors.Errorf("unsupported syntax for 'f'; expected at least 3 arguments; got %d", len(lineTokens)-1)
	}
	if rd.obj == nil {
		rd.newObject(rd.s.Name)
	}
	m := rd.obj.Mesh

	face := scene.Face{Smooth: rd.smooth}
	haveUV, haveNormals := true, true
	uvs := make([]mgl32.Vec2, 0, len(lineTokens)-1)

	for arg, token := range lineTokens[1:] {
		vTokens := strings.Split(token, "/")
		if vTokens[0] == "" {
			return errors.Errorf("face argument %d does not include a vertex index", arg)
		}
		vIndex, err := selectFaceCoordIndex(vTokens[0], len(rd.vertexList))
		if err != nil {
			return errors.Wrapf(err, "could not parse vertex coord for face argument %d", arg)
		}

		if len(vTokens) > 1 && vTokens[1] != "" {
			uvIndex, err := selectFaceCoordIndex(vTokens[1], len(rd.uvList))
			if err != nil {
				return errors.Wrapf(err, "could not parse tex coord for face argument %d", arg)
			}
			uvs = append(uvs, rd.uvList[uvIndex])
		} else {
			haveUV = false
		}

		nIndex := -1
		if len(vTokens) > 2 && vTokens[2] != "" {
			if nIndex, err = selectFaceCoordIndex(vTokens[2], len(rd.normalList)); err != nil {
				return errors.Wrapf(err, "could not parse normal coord for face argument %d", arg)
			}
		} else {
			haveNormals = false
		}

		key := [2]int{vIndex, nIndex}
		local, ok := rd.vertexMap[key]
		if !ok {
			v := scene.Vertex{Position: rd.vertexList[vIndex]}
			if nIndex >= 0 {
				v.Normal = rd.normalList[nIndex].Normalize()
			}
			local = len(m.Vertices)
			m.Vertices = append(m.Vertices, v)
			rd.vertexMap[key] = local
		}
		face.Vertices = append(face.Vertices, local)
	}

	if haveUV {
		face.UVs = uvs
	}
	if haveNormals {
		face.Smooth = true
	}

	if rd.curMaterial == nil {
		rd.curMaterial = rd.defaultMaterial()
	}
	face.Material = -1
	for i, mat := range m.Materials {
		if mat == rd.curMaterial {
			face.Material = i
		}
	}
	if face.Material < 0 {
		face.Material = len(m.Materials)
		m.Materials = append(m.Materials, rd.curMaterial)
	}

	m.Faces = append(m.Faces, face)
	return nil
}

// defaultMaterial is used by faces before any usemtl.
func (rd *reader) defaultMaterial() *scene.Material {
	if mat, ok := rd.materials[""]; ok {
		return mat
	}
	mat := scene.NewMaterial("default")
	rd.materials[""] = mat
	return mat
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Negative indices count from the end.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = int(index - 1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf("unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
	}
	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}
	return float32(val), nil
}

func parseVec3(lineTokens []string) (mgl32.Vec3, error) {
	if len(lineTokens) < 4 {
		return mgl32.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}
	v := mgl32.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// parseVec2 accepts an optional third texture coordinate.
func parseVec2(lineTokens []string) (mgl32.Vec2, error) {
	if len(lineTokens) < 3 {
		return mgl32.Vec2{}, fmt.Errorf("unsupported syntax for '%s'; expected 2 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}
	v := mgl32.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
