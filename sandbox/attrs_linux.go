// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build linux

package sandbox

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// applySandboxAttrs gives the interpreter process its own process group
// (so killProcessGroup can destroy the whole tree) and installs a
// Pdeathsig so an orphaned child is reaped by the kernel if the gateway
// itself dies mid-call.
func applySandboxAttrs(cmd *exec.Cmd, limits Limits) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

// killProcessGroup sends SIGKILL to every process in pid's group.
func killProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// probeIsolationPrimitives checks once at startup whether this process
// can exercise unix.Getrlimit and PR_SET_NO_NEW_PRIVS, caching the result
// for the Runner's lifetime instead of probing per-call the way
// stats_verifier.py probes Docker availability — the failure mode here
// is process-wide, not per-invocation, so a single probe is sufficient.
func probeIsolationPrimitives() bool {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &rlim); err != nil {
		return false
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return false
	}
	return true
}

// applyPostStartRlimits bounds an already-started child's RSS and CPU
// seconds via prlimit(2) (unix.Prlimit), the syscall that targets an
// arbitrary pid rather than the calling process; there is a narrow
// fork-to-exec window this does not cover, since Go's exec package has
// no cgo-free pre-exec hook, but the ceiling is in force for the entire
// runtime of the interpreter's own workload.
func applyPostStartRlimits(pid int, limits Limits) {
	if limits.MemoryLimitB > 0 {
		rlim := unix.Rlimit{Cur: limits.MemoryLimitB, Max: limits.MemoryLimitB}
		_ = unix.Prlimit(pid, unix.RLIMIT_AS, &rlim, nil)
	}
	if limits.CPUSeconds > 0 {
		rlim := unix.Rlimit{Cur: limits.CPUSeconds, Max: limits.CPUSeconds}
		_ = unix.Prlimit(pid, unix.RLIMIT_CPU, &rlim, nil)
	}
}
