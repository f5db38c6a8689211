//go:build windows

package playback

import (
	"os/exec"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	// CREATE_NO_WINDOW keeps mpv from opening a console
	return &syscall.SysProcAttr{CreationFlags: 0x08000000}
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
