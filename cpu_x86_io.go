// cpu_x86_io.go - I/O-port dispatcher
//
// A registered-handler-by-port map with a configurable fail-on-
// unhandled-port strict mode.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// IOPortRegistry maintains a map from port number to handler and routes
// IN/OUT byte/word/dword accesses to it.
type IOPortRegistry struct {
	handlers map[uint16]IOPort
}

func NewIOPortRegistry() *IOPortRegistry {
	return &IOPortRegistry{handlers: make(map[uint16]IOPort)}
}

// Register installs handler as the owner of port. A later call for the
// same port replaces the previous handler.
func (r *IOPortRegistry) Register(port uint16, handler IOPort) {
	r.handlers[port] = handler
}

func (r *IOPortRegistry) Unregister(port uint16) { delete(r.handlers, port) }

func (c *CPU_X86) in8(port uint16) (byte, error) {
	if h, ok := c.ioPorts.handlers[port]; ok {
		return h.ReadByte(port), nil
	}
	if c.config.FailOnUnhandledPort {
		return 0, &UnhandledIOPortError{Port: port, Write: false, State: c.snapshot()}
	}
	return 0, nil
}

func (c *CPU_X86) out8(port uint16, v byte) error {
	if h, ok := c.ioPorts.handlers[port]; ok {
		h.WriteByte(port, v)
		return nil
	}
	if c.config.FailOnUnhandledPort {
		return &UnhandledIOPortError{Port: port, Write: true, State: c.snapshot()}
	}
	return nil
}

func (c *CPU_X86) in16(port uint16) (uint16, error) {
	if h, ok := c.ioPorts.handlers[port]; ok {
		return h.ReadWord(port), nil
	}
	if c.config.FailOnUnhandledPort {
		return 0, &UnhandledIOPortError{Port: port, Write: false, State: c.snapshot()}
	}
	return 0, nil
}

func (c *CPU_X86) out16(port uint16, v uint16) error {
	if h, ok := c.ioPorts.handlers[port]; ok {
		h.WriteWord(port, v)
		return nil
	}
	if c.config.FailOnUnhandledPort {
		return &UnhandledIOPortError{Port: port, Write: true, State: c.snapshot()}
	}
	return nil
}

// RegisterIOPort exposes the registry to callers wiring up devices.
func (c *CPU_X86) RegisterIOPort(port uint16, handler IOPort) {
	c.ioPorts.Register(port, handler)
}
