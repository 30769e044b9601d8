package process

import "rtcore/kernel/port"

// ExitStatus is the outcome a process's waiter (waitpid-equivalent) sees:
// either a normal exit with a code, or termination by a fault translated
// into the kernel's unified FaultClass taxonomy.
type ExitStatus struct {
	normal bool
	code   int
	fault  port.FaultClass
}

// Normal builds the status for a process that called exit(code) itself.
func Normal(code int) ExitStatus { return ExitStatus{normal: true, code: code} }

// Signaled builds the status for a process killed by a fault.
func Signaled(class port.FaultClass) ExitStatus { return ExitStatus{normal: false, fault: class} }

// Exited reports whether the process terminated normally, and if so its
// exit code.
func (s ExitStatus) Exited() (code int, ok bool) {
	return s.code, s.normal
}

// Signal reports the fault class that terminated the process, and
// whether it terminated by fault at all.
func (s ExitStatus) Signal() (class port.FaultClass, ok bool) {
	return s.fault, !s.normal
}
