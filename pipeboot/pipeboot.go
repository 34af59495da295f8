// Package pipeboot implements the pipe bootstrap: the parent opens anonymous
// pipe pairs, renders the child-facing file descriptors as decimal
// command-line arguments after a sentinel word, and the child reconstructs
// pipe objects from those numbers.
//
// Process spawning itself and the raw fd/HANDLE portability shims are
// out of scope collaborators here (stdlib os/exec and os.Pipe); this package
// owns only the argv protocol layered on top of them.
package pipeboot

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Sentinel marks the start of the handle-passing region of argv. Everything
// after it belongs to the bootstrap; everything before it is the child's own
// command-line arguments.
const Sentinel = "PIPER_START"

// Pipes is the pair of anonymous pipes carrying one direction of traffic
// each, plus the optional third pair used by the reaper.
type Pipes struct {
	// ParentToChild is read by the child, written by the parent.
	ParentToChild *os.File // reader in child, writer in parent
	// ChildToParent is read by the parent, written by the child.
	ChildToParent *os.File // writer in child, reader in parent
	// ReaperProbe is the reaper's write end in the parent and read end in
	// the child (or vice versa — callers decide which side watches).
	ReaperProbe *os.File // present only when reaper support was requested
}

// Parent opens the pipe pairs required by one channel, wires them into
// cmd.ExtraFiles, and appends the sentinel plus the child-relative file
// descriptor numbers to cmd.Args. withReaper additionally opens a third pipe
// pair for the reaper and appends its fd too.
//
// cmd must not have been given arguments the caller wants to keep private:
// anything already present in cmd.Args before calling Parent is left alone
// and the bootstrap arguments are appended after it, so callers should add
// their own arguments to cmd first.
//
// Returns the two *os.File ends the parent keeps open: its own write pipe
// (parentWrite) and its own read pipe (parentRead), plus (if requested) its
// end of the reaper probe pipe.
func Parent(cmd *exec.Cmd, withReaper bool) (parentWrite, parentRead, reaperWrite *os.File, err error) {
	// parentWrite/childRead is the parent->child direction.
	childRead, parentWrite, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pipeboot: open parent->child pipe: %w", err)
	}
	// childWrite/parentRead is the child->parent direction.
	parentRead, childWrite, err := os.Pipe()
	if err != nil {
		childRead.Close()
		parentWrite.Close()
		return nil, nil, nil, fmt.Errorf("pipeboot: open child->parent pipe: %w", err)
	}

	cmd.ExtraFiles = append(cmd.ExtraFiles, childRead, childWrite)
	cmd.Args = append(cmd.Args, Sentinel,
		strconv.Itoa(childRelativeFD(cmd, childRead)),
		strconv.Itoa(childRelativeFD(cmd, childWrite)),
	)

	var reaperChildWrite *os.File
	if withReaper {
		reaperRead, rw, rerr := os.Pipe()
		if rerr != nil {
			childRead.Close()
			childWrite.Close()
			parentWrite.Close()
			parentRead.Close()
			return nil, nil, nil, fmt.Errorf("pipeboot: open reaper pipe: %w", rerr)
		}
		reaperWrite = rw
		reaperChildWrite = reaperRead
		cmd.ExtraFiles = append(cmd.ExtraFiles, reaperChildWrite)
		cmd.Args = append(cmd.Args, strconv.Itoa(childRelativeFD(cmd, reaperChildWrite)))
	}

	// These fds now live in cmd.ExtraFiles; once the child is spawned the
	// parent's copies of the child's ends are no longer needed.
	closeAfterSpawn := []*os.File{childRead, childWrite}
	if reaperChildWrite != nil {
		closeAfterSpawn = append(closeAfterSpawn, reaperChildWrite)
	}

	if serr := cmd.Start(); serr != nil {
		for _, f := range closeAfterSpawn {
			f.Close()
		}
		parentWrite.Close()
		parentRead.Close()
		if reaperWrite != nil {
			reaperWrite.Close()
		}
		return nil, nil, nil, serr
	}

	for _, f := range closeAfterSpawn {
		f.Close()
	}

	return parentWrite, parentRead, reaperWrite, nil
}

// childRelativeFD returns the fd number the given file will have inside the
// child once exec.Cmd wires up ExtraFiles: os/exec always places
// cmd.ExtraFiles starting at fd 3, in order, regardless of the file's fd
// number in the parent process.
func childRelativeFD(cmd *exec.Cmd, f *os.File) int {
	for i, extra := range cmd.ExtraFiles {
		if extra == f {
			return 3 + i
		}
	}
	// Unreachable for files this package itself appended to ExtraFiles.
	return -1
}

// ErrNotChild means the process's arguments don't contain the sentinel, so
// this process was not launched by Parent (or its arguments were already
// consumed by something else).
var ErrNotChild = fmt.Errorf("pipeboot: sentinel %q not found in arguments", Sentinel)

// ErrMalformedHandles means a handle token after the sentinel failed to parse
// as a non-zero file descriptor number.
var ErrMalformedHandles = fmt.Errorf("pipeboot: could not parse pipe handles")

// Child scans os.Args for the sentinel and reconstructs the pipe pair the
// parent created. It does not touch the reaper probe; use ChildWithReaper
// for channels started with Parent(cmd, true).
//
// The caller's own arguments — everything before the sentinel — are
// returned as args so the child can still parse its own flags; os.Args
// itself must not be consulted directly once a channel is in use (the
// sentinel region is not meaningful application input).
func Child() (childRead, childWrite *os.File, args []string, err error) {
	read, write, _, args, err := child(false)
	return read, write, args, err
}

// ChildWithReaper is Child plus reconstruction of the reaper probe pipe end.
func ChildWithReaper() (childRead, childWrite, reaperProbe *os.File, args []string, err error) {
	return child(true)
}

func child(withReaper bool) (childRead, childWrite, reaperProbe *os.File, args []string, err error) {
	argv := os.Args[1:]
	sentinelAt := -1
	for i, a := range argv {
		if a == Sentinel {
			sentinelAt = i
			break
		}
	}
	if sentinelAt == -1 {
		return nil, nil, nil, nil, ErrNotChild
	}

	needed := 2
	if withReaper {
		needed = 3
	}
	handles := argv[sentinelAt+1:]
	if len(handles) < needed {
		return nil, nil, nil, nil, ErrMalformedHandles
	}

	fds := make([]uintptr, needed)
	for i := 0; i < needed; i++ {
		n, perr := strconv.ParseUint(handles[i], 10, 64)
		if perr != nil || n == 0 {
			return nil, nil, nil, nil, ErrMalformedHandles
		}
		fds[i] = uintptr(n)
	}

	childRead = os.NewFile(fds[0], "pipeboot-parent-to-child")
	childWrite = os.NewFile(fds[1], "pipeboot-child-to-parent")
	if withReaper {
		reaperProbe = os.NewFile(fds[2], "pipeboot-reaper-probe")
	}

	return childRead, childWrite, reaperProbe, append([]string(nil), argv[:sentinelAt]...), nil
}
