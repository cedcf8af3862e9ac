// ctm is the cognitive task manager: agent continuity, priority
// scheduling, and tiered memory for long-running AI coding sessions.
package main

import (
	"os"
	"runtime/debug"

	"github.com/rfenaux/ctm/internal/commands"
)

// version is set via ldflags (-X main.version=v1.0.0) or detected
// automatically from Go module info embedded by go install.
var version = "dev"

func main() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
