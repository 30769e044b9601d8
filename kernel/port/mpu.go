package port

// Perm is a simulated MPU region permission set.
type Perm uint8

const (
	PermNone Perm = 0
	PermRead Perm = 1 << iota
	PermWrite
	PermExecute
)

// Region is one simulated MPU region, covering a process image block
// handed out by hal.ImagePool.
type Region struct {
	Base uintptr
	Size uintptr
	Perm Perm
}

// Contains reports whether addr falls inside r with at least the
// requested permission bits.
func (r Region) Contains(addr uintptr, need Perm) bool {
	if addr < r.Base || addr >= r.Base+r.Size {
		return false
	}
	return r.Perm&need == need
}

// MPU is the simulated memory protection unit for one core. Real hardware
// has a handful of region slots wired to dedicated registers; since
// process support is opt-in (kernel/config.WithProcesses) and this is a
// software model, the region list is unbounded.
type MPU struct {
	enabled bool
	regions []Region
}

// Configure installs regions and enables checking. With an empty region
// list every access is denied; unrestricted access is what Disable gives.
func (m *MPU) Configure(regions []Region) {
	m.regions = regions
	m.enabled = true
}

// Disable turns off region checking, used when the running context is the
// kernel itself rather than a sandboxed process thread.
func (m *MPU) Disable() { m.enabled = false }

// Enabled reports whether region checks are currently active.
func (m *MPU) Enabled() bool { return m.enabled }

// Check reports whether addr may be accessed with the given permission.
// When the MPU is disabled every address is permitted, matching kernel
// mode's unrestricted view of memory.
func (m *MPU) Check(addr uintptr, need Perm) bool {
	if !m.enabled {
		return true
	}
	for _, r := range m.regions {
		if r.Contains(addr, need) {
			return true
		}
	}
	return false
}
