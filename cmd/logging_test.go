package cmd

import (
	"flag"
	"os"
	"testing"

	"github.com/urfave/cli"

	"github.com/mogaika/m3g_exporter/log"
)

func newGlobalContext(t *testing.T, args ...string) *cli.Context {
	global := flag.NewFlagSet("global", flag.ContinueOnError)
	global.Bool("v", false, "")
	global.Bool("vv", false, "")
	global.String("log-level", "", "")
	if err := global.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(nil, flag.NewFlagSet("command", flag.ContinueOnError), cli.NewContext(nil, global, nil))
}

func TestSetupLogging(t *testing.T) {
	defer log.SetSink(os.Stderr)

	if err := setupLogging(newGlobalContext(t, "-v", "--log-level", "m3g_exporter=debug,web=warning")); err != nil {
		t.Fatal(err)
	}
	if err := setupLogging(newGlobalContext(t, "--log-level", "m3g_exporter=loud")); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := setupLogging(newGlobalContext(t, "--log-level", "nobody=debug")); err == nil {
		t.Fatalf("expected error for unknown module")
	}
}
