package testutil

import (
	"k8s.io/utils/exec"
	fakeexec "k8s.io/utils/exec/testing"
)

// Command is the scripted result of one command invocation.
type Command struct {
	Output string
	Err    error
}

// Recorder collects the argv of every command started through a fake executor.
type Recorder struct {
	Calls [][]string
}

// Last returns the last argument of every recorded call, the script for PowerShell invocations.
func (r *Recorder) Last() []string {
	last := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		last = append(last, c[len(c)-1])
	}

	return last
}

// FakeExec returns an executor whose consecutive commands produce the given results,
// whether they are run with CombinedOutput or with Run.
func FakeExec(recorder *Recorder, commands ...Command) *fakeexec.FakeExec {
	fexec := &fakeexec.FakeExec{}

	for _, c := range commands {
		c := c
		action := func() ([]byte, []byte, error) { return []byte(c.Output), nil, c.Err }
		fcmd := &fakeexec.FakeCmd{
			CombinedOutputScript: []fakeexec.FakeAction{action},
			RunScript:            []fakeexec.FakeAction{action},
		}

		fexec.CommandScript = append(fexec.CommandScript, func(cmd string, args ...string) exec.Cmd {
			if recorder != nil {
				recorder.Calls = append(recorder.Calls, append([]string{cmd}, args...))
			}

			return fakeexec.InitFakeCmd(fcmd, cmd, args...)
		})
	}

	return fexec
}
