package scriptrunner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so that
// killProcessGroup can take down the interpreter and anything it spawned
// in one signal, the same idiom used by the daemon's agent supervision.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the whole process group of cmd.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Kill()
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}
