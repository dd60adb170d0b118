// cpu_x86_runner.go - DOS-style flat binary loader and run loop
//
// Loads a flat .COM-style image at 0000:0100 and drives Step() in a
// goroutine whose lifecycle is owned by an errgroup rather than a bare
// `go func(){...}()` plus a stop channel.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

const comLoadOffset = 0x100

// CPUX86Runner owns a CPU_X86 and its backing memory bus, and drives the
// fetch/decode/execute loop either one instruction at a time (Step) or
// continuously in a background goroutine (Start/Stop).
type CPUX86Runner struct {
	cpu *CPU_X86
	bus *FlatMemoryBus

	group  *errgroup.Group
	cancel context.CancelFunc
}

func NewCPUX86Runner(config CPUX86Config) *CPUX86Runner {
	bus := NewFlatMemoryBus()
	cpu := NewCPU_X86(bus)
	cpu.SetConfig(config)
	return &CPUX86Runner{cpu: cpu, bus: bus}
}

func (r *CPUX86Runner) GetCPU() *CPU_X86 { return r.cpu }

// LoadProgramData copies a flat DOS COM-style image into memory at
// 0000:0100 and points CS:IP at its entry point.
func (r *CPUX86Runner) LoadProgramData(data []byte) error {
	if len(data) > 0x10000-comLoadOffset {
		return fmt.Errorf("program too large for a COM-style load: %d bytes", len(data))
	}
	for i, b := range data {
		r.bus.Write8(uint32(comLoadOffset+i), b)
	}
	r.cpu.Reset()
	r.cpu.CS, r.cpu.DS, r.cpu.ES, r.cpu.SS = 0, 0, 0, 0
	r.cpu.IP = comLoadOffset
	return nil
}

func (r *CPUX86Runner) LoadProgramFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading program image: %w", err)
	}
	return r.LoadProgramData(data)
}

// Step executes exactly one instruction and returns the count Step()
// itself reports (0 on halt/fault, 1 otherwise).
func (r *CPUX86Runner) Step() int { return r.cpu.Step() }

func (r *CPUX86Runner) Reset() { r.cpu.Reset() }

// Execute runs to completion synchronously: until the core halts, faults,
// or ctx is canceled.
func (r *CPUX86Runner) Execute(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if r.cpu.Step() == 0 {
			return r.cpu.LastFault()
		}
	}
}

// IsRunning reports whether a background run loop is active.
func (r *CPUX86Runner) IsRunning() bool { return r.cpu.Running() }

// Start launches the run loop in a background goroutine managed by an
// errgroup: calling Stop cancels the group's context, and the caller can
// Wait() on the returned group to observe the loop's terminal error, if
// any.
func (r *CPUX86Runner) Start(ctx context.Context) *errgroup.Group {
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	r.group = group
	r.cancel = cancel
	r.cpu.SetRunning(true)

	group.Go(func() error {
		defer r.cpu.SetRunning(false)
		return r.Execute(groupCtx)
	})
	return group
}

// Stop cancels a Start()-ed run loop and blocks until it has exited.
func (r *CPUX86Runner) Stop() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	err := r.group.Wait()
	r.cancel = nil
	r.group = nil
	if err == context.Canceled {
		return nil
	}
	return err
}
