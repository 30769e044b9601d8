//go:build with_processes

package config

// WithProcesses enables the MPU-isolated userspace path (kernel/process).
const WithProcesses = true
