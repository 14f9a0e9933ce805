package ocr

import (
	"bytes"
	"context"
	"os/exec"
)

func runCommand(ctx context.Context, name string, args []string, stdout, stderr *bytes.Buffer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
