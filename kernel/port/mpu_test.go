package port

import "testing"

func TestMPUDisabledAllowsEverything(t *testing.T) {
	var m MPU
	if !m.Check(0xDEAD, PermRead|PermWrite|PermExecute) {
		t.Fatal("a disabled MPU should permit any address")
	}
}

func TestMPUConfiguredChecksRegion(t *testing.T) {
	var m MPU
	m.Configure([]Region{{Base: 0x1000, Size: 0x100, Perm: PermRead | PermWrite}})

	if !m.Check(0x1000, PermRead) {
		t.Fatal("region start should be accessible")
	}
	if !m.Check(0x10FF, PermRead) {
		t.Fatal("last byte inside region should be accessible")
	}
	if m.Check(0x1100, PermRead) {
		t.Fatal("one byte past the region should be rejected")
	}
	if m.Check(0x1000, PermExecute) {
		t.Fatal("region without PermExecute should reject an execute check")
	}
	if !m.Enabled() {
		t.Fatal("Configure should enable checking")
	}
}

func TestMPUDisableReopensAccess(t *testing.T) {
	var m MPU
	m.Configure([]Region{{Base: 0x1000, Size: 0x10, Perm: PermRead}})
	m.Disable()
	if !m.Check(0, PermExecute) {
		t.Fatal("Disable should return the MPU to allow-everything")
	}
}

func TestRegionContainsPermissionSubset(t *testing.T) {
	r := Region{Base: 0x2000, Size: 0x10, Perm: PermRead | PermExecute}
	if !r.Contains(0x2000, PermRead) {
		t.Fatal("read should be satisfied by a region granting read+execute")
	}
	if r.Contains(0x2000, PermWrite) {
		t.Fatal("write should not be satisfied by a read+execute region")
	}
}
