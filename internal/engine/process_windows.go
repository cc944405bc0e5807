//go:build windows

package engine

import (
	"os/exec"
)

// configureProcessGroup keeps the default cancellation, which kills the engine process.
func configureProcessGroup(cmd *exec.Cmd) {}
