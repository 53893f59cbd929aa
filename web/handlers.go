package web

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/m3g_exporter/config"
	"github.com/mogaika/m3g_exporter/exporter"
	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/preview/fbxpreview"
	"github.com/mogaika/m3g_exporter/preview/gltfpreview"
	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/scene/loader"
	"github.com/mogaika/m3g_exporter/status"
	"github.com/mogaika/m3g_exporter/webutils"
)

const maxUploadSize = 64 << 20

// queryAliases are short query names of options.
var queryAliases = map[string]string{
	"java":     "export_as_java",
	"compress": "compress",
}

// serverFile resolves a file name inside ServerDirectory.
func serverFile(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == ".." {
		return "", errors.Errorf("Invalid file name %q", name)
	}
	path := filepath.Join(ServerDirectory, name)
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(err, "File %q", name)
	}
	return path, nil
}

// optionsFromQuery reads options named by their yaml keys from the query.
func optionsFromQuery(r *http.Request) (config.Options, error) {
	defaults, err := config.DefaultOptions().Marshal()
	if err != nil {
		return config.Options{}, err
	}
	fields := make(map[string]interface{})
	if err := yaml.Unmarshal(defaults, &fields); err != nil {
		return config.Options{}, errors.Wrapf(err, "Failed to list options")
	}

	values := make(map[string]interface{})
	for key, vs := range r.URL.Query() {
		if alias, ok := queryAliases[key]; ok {
			key = alias
		}
		def, ok := fields[key]
		if !ok || len(vs) == 0 {
			continue
		}
		if _, isBool := def.(bool); isBool {
			b, err := strconv.ParseBool(vs[0])
			if err != nil {
				return config.Options{}, errors.Errorf("Option %q: %q is not a boolean", key, vs[0])
			}
			values[key] = b
		} else {
			values[key] = vs[0]
		}
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return config.Options{}, errors.Wrapf(err, "Failed to marshal options")
	}
	return config.ReadOptions(bytes.NewReader(data))
}

func HandlerAjaxModels(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(ServerDirectory)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	files := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() && (loader.Supported(e.Name()) || strings.EqualFold(filepath.Ext(e.Name()), ".m3g")) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	webutils.WriteJson(w, files)
}

type objectSummary struct {
	Name      string
	Type      string
	Parent    string   `json:",omitempty"`
	Vertices  int      `json:",omitempty"`
	Faces     int      `json:",omitempty"`
	Materials []string `json:",omitempty"`
	Bones     int      `json:",omitempty"`
	Action    string   `json:",omitempty"`
}

type sceneSummary struct {
	Name       string
	FPS        float32
	FrameStart int
	FrameEnd   int
	Objects    []objectSummary
	Actions    []string
}

func summarize(s *scene.Scene) *sceneSummary {
	result := &sceneSummary{
		Name:       s.Name,
		FPS:        s.FPS,
		FrameStart: s.FrameStart,
		FrameEnd:   s.FrameEnd,
		Objects:    make([]objectSummary, 0, len(s.Objects)),
		Actions:    make([]string, 0, len(s.Actions)),
	}
	for _, o := range s.Objects {
		info := objectSummary{Name: o.Name, Type: o.Type.String()}
		if o.Parent != nil {
			info.Parent = o.Parent.Name
		}
		if o.Mesh != nil {
			info.Vertices = len(o.Mesh.Vertices)
			info.Faces = len(o.Mesh.Faces)
			for _, m := range o.Mesh.Materials {
				info.Materials = append(info.Materials, m.Name)
			}
		}
		if o.Armature != nil {
			info.Bones = len(o.Armature.Bones)
		}
		if o.Action != nil {
			info.Action = o.Action.Name
		}
		result.Objects = append(result.Objects, info)
	}
	for _, a := range s.Actions {
		result.Actions = append(result.Actions, a.Name)
	}
	return result
}

func HandlerAjaxModel(w http.ResponseWriter, r *http.Request) {
	path, err := serverFile(mux.Vars(r)["file"])
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
		return
	}
	s, err := loader.Load(path)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, summarize(s))
}

// convert translates s and writes the result as a download.
func convert(w http.ResponseWriter, r *http.Request, s *scene.Scene, fileName string) {
	opts, err := optionsFromQuery(r)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	e, err := exporter.Translate(s, opts, status.Reporter{Name: fileName})
	if err != nil {
		status.Error("%s: %v", fileName, err)
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if opts.ExportAsJava {
		className := exporter.ClassName(fileName)
		err = e.WriteJava(&buf, className)
		fileName = className + ".java"
	} else {
		err = e.WriteM3G(&buf)
		fileName = base + ".m3g"
	}
	if err != nil {
		status.Error("%s: %v", fileName, err)
		webutils.WriteError(w, err)
		return
	}
	status.Info("%s: done, %d bytes", fileName, buf.Len())
	webutils.WriteFile(w, &buf, fileName)
}

func HandlerConvert(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	path, err := serverFile(file)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
		return
	}
	s, err := loader.Load(path)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	convert(w, r, s, file)
}

// HandlerUpload converts a model posted as multipart field "model".
// Files referenced by the model are not available.
func HandlerUpload(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadFormFile(r, "model", maxUploadSize)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	name = filepath.Base(name)
	if !loader.Supported(name) {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, errors.Errorf("Unsupported file %q", name))
		return
	}

	dir, err := os.MkdirTemp("", "m3g_upload")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0666); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to store upload"))
		return
	}
	s, err := loader.Load(path)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	convert(w, r, s, name)
}

type objectInfo struct {
	Index uint32
	Type  string
	Size  int
}

type sectionInfo struct {
	Compression        byte
	TotalLength        uint32
	UncompressedLength uint32
	Objects            []objectInfo
}

type fileInfo struct {
	Header   m3g.Header
	Sections []sectionInfo
}

func HandlerAjaxInspect(w http.ResponseWriter, r *http.Request) {
	path, err := serverFile(mux.Vars(r)["file"])
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	f, err := m3g.DecodeBytes(data)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	info := fileInfo{Header: f.Header}
	for _, s := range f.Sections {
		si := sectionInfo{
			Compression:        s.Compression,
			TotalLength:        s.TotalLength,
			UncompressedLength: s.UncompressedLength,
		}
		for _, o := range s.Objects {
			si.Objects = append(si.Objects, objectInfo{Index: o.Index, Type: o.TypeName(), Size: len(o.Data)})
		}
		info.Sections = append(info.Sections, si)
	}
	webutils.WriteJson(w, info)
}

func HandlerPreview(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	format := mux.Vars(r)["format"]
	path, err := serverFile(file)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
		return
	}
	s, err := loader.Load(path)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	base := strings.TrimSuffix(file, filepath.Ext(file))
	switch format {
	case "fbx":
		err = fbxpreview.Export(&buf, s, base+".fbx")
	case "glb":
		err = gltfpreview.Export(&buf, s)
	default:
		webutils.WriteErrorStatus(w, http.StatusBadRequest, errors.Errorf("Unknown preview format %q", format))
		return
	}
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, base+"."+format)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warningf("websocket upgrade: %v", err)
		return
	}
	status.NewClient(conn)
}
