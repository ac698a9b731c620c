package model

const (
	defaultCPUTimeSeconds = 2
	defaultMemoryKB       = 128000
)

// ResourceLimit is the per-unit ceiling passed to the execution engine.
type ResourceLimit struct {
	CPUTimeSeconds float64 `yaml:"cpuTimeSeconds" json:"cpuTimeSeconds"`
	MemoryKB       int     `yaml:"memoryKB" json:"memoryKB"`
}

// ApplyDefaults fills zero-valued fields.
func (l *ResourceLimit) ApplyDefaults() {
	if l.CPUTimeSeconds <= 0 {
		l.CPUTimeSeconds = defaultCPUTimeSeconds
	}
	if l.MemoryKB <= 0 {
		l.MemoryKB = defaultMemoryKB
	}
}

// ModeLimits holds limits per judging mode.
type ModeLimits struct {
	Run    ResourceLimit `yaml:"run"`
	Submit ResourceLimit `yaml:"submit"`
}

// ApplyDefaults fills zero-valued fields.
func (m *ModeLimits) ApplyDefaults() {
	m.Run.ApplyDefaults()
	m.Submit.ApplyDefaults()
}

// For returns the limits of a mode.
func (m ModeLimits) For(mode Mode) ResourceLimit {
	if mode == ModeSubmit {
		return m.Submit
	}
	return m.Run
}
