// Package shellscript renders user-supplied command sequences into
// standalone bash scripts. Scripts are always rendered in "bash strict
// mode": http://redsymbol.net/articles/unofficial-bash-strict-mode/
//
// ballast only renders these scripts into the plan output; executing
// them is the job of whatever runs the plan.
package shellscript

import (
	"fmt"
	"strings"
)

// StrictMode enables http://redsymbol.net/articles/unofficial-bash-strict-mode/
const StrictMode = "set -euo pipefail"

// Render builds a named strict-mode script from cmds, one command per
// line.
func Render(name string, cmds []string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	if name != "" {
		fmt.Fprintf(&b, "# %s\n", name)
	}
	b.WriteString(StrictMode + "\n\n")
	for _, cmd := range cmds {
		b.WriteString(cmd + "\n")
	}
	return b.String()
}
