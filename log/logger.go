package log

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

type Level logging.Level

const (
	Debug   = Level(logging.DEBUG)
	Info    = Level(logging.INFO)
	Notice  = Level(logging.NOTICE)
	Warning = Level(logging.WARNING)
	Error   = Level(logging.ERROR)
)

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	leveledBackend logging.LeveledBackend

	modulesLock sync.Mutex
	modules     = make(map[string]struct{})
)

// Logger is the leveled logger handed out to every package.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

func init() {
	SetSink(os.Stderr)
}

// New creates a logger for a package. The name shows up as the module
// column and selects the logger in SetLevel and ParseLevels.
func New(module string) Logger {
	modulesLock.Lock()
	modules[module] = struct{}{}
	modulesLock.Unlock()
	return logging.MustGetLogger(module)
}

// Modules lists the names passed to New.
func Modules() []string {
	modulesLock.Lock()
	defer modulesLock.Unlock()
	result := make([]string, 0, len(modules))
	for m := range modules {
		result = append(result, m)
	}
	sort.Strings(result)
	return result
}

// SetSink redirects every logger and resets all levels to Notice.
func SetSink(sink io.Writer) {
	backend := logging.NewBackendFormatter(logging.NewLogBackend(sink, "", 0), format)
	leveledBackend = logging.AddModuleLevel(backend)
	leveledBackend.SetLevel(logging.NOTICE, "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity of the given modules, or of every module
// without an own level when none are given.
func SetLevel(level Level, names ...string) {
	if len(names) == 0 {
		names = []string{""}
	}
	for _, m := range names {
		leveledBackend.SetLevel(logging.Level(level), m)
	}
}

// ParseLevel accepts go-logging level names, e.g. "debug" or "WARNING".
func ParseLevel(name string) (Level, error) {
	level, err := logging.LogLevel(name)
	if err != nil {
		return Notice, errors.Errorf("Unknown log level %q", name)
	}
	return Level(level), nil
}

// ParseLevels applies a comma separated list like "info,web=debug".
// Entries without a module set the default level.
func ParseLevels(list string) error {
	known := make(map[string]bool)
	for _, m := range Modules() {
		known[m] = true
	}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		module, levelName := "", entry
		if i := strings.IndexByte(entry, '='); i >= 0 {
			module, levelName = entry[:i], entry[i+1:]
			if !known[module] {
				return errors.Errorf("Unknown log module %q, known: %s", module, strings.Join(Modules(), ", "))
			}
		}
		level, err := ParseLevel(levelName)
		if err != nil {
			return err
		}
		if module == "" {
			SetLevel(level)
		} else {
			SetLevel(level, module)
		}
	}
	return nil
}
