// main.go - CLI entrypoint
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "x86core",
		Short: "Real-mode x86 CPU core for running DOS binaries",
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newRunCmd(), newStepCmd(), newFunctionsCmd(), newDebugCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and version information",
		Run: func(cmd *cobra.Command, args []string) {
			printFeatures()
		},
	}
}

func commonConfigFlags(cmd *cobra.Command, cfg *CPUX86Config) {
	cmd.Flags().BoolVar(&cfg.FailOnUnhandledPort, "fail-on-unhandled-port", false,
		"treat reads/writes to unregistered I/O ports as fatal instead of returning 0xFF/ignoring")
	cmd.Flags().BoolVar(&cfg.ErrorOnUninitializedInterruptHandler, "fail-on-uninitialized-interrupt", false,
		"treat INT through a zeroed IVT entry as fatal")
	cmd.Flags().BoolVar(&cfg.DebugMode, "debug", false, "enable debugf tracing")
}

// luaFlag registers the --lua flag shared by every subcommand that
// constructs a runner, backing the Lua-scripted Native override host.
func luaFlag(cmd *cobra.Command) *string {
	return cmd.Flags().String("lua", "", "load a Lua script registering Native call overrides")
}

// newRunner constructs a runner, loads the program image, and — if
// luaPath is non-empty — loads a Lua override script against the runner's
// CPU. The returned closer must be called once the runner is done
// executing; it is a no-op when no script was loaded.
func newRunner(file, luaPath string, cfg CPUX86Config) (runner *CPUX86Runner, closer func(), err error) {
	runner = NewCPUX86Runner(cfg)
	if err := runner.LoadProgramFromFile(file); err != nil {
		return nil, nil, err
	}
	closer = func() {}
	if luaPath != "" {
		script, err := LoadLuaOverrides(runner.GetCPU(), luaPath)
		if err != nil {
			return nil, nil, err
		}
		closer = script.Close
	}
	return runner, closer, nil
}

func newRunCmd() *cobra.Command {
	var cfg CPUX86Config
	cmd := &cobra.Command{
		Use:   "run <program.com>",
		Short: "Load a flat binary at 0000:0100 and execute to halt or fault",
		Args:  cobra.ExactArgs(1),
	}
	luaPath := luaFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		runner, closer, err := newRunner(args[0], *luaPath, cfg)
		if err != nil {
			return err
		}
		defer closer()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		err = runner.Execute(ctx)
		printFinalState(runner.GetCPU())
		if err != nil && err != context.Canceled {
			return fmt.Errorf("execution halted: %w", err)
		}
		return nil
	}
	commonConfigFlags(cmd, &cfg)
	return cmd
}

func newStepCmd() *cobra.Command {
	var cfg CPUX86Config
	cmd := &cobra.Command{
		Use:   "step <program.com>",
		Short: "Single-step interactively: press any key to execute one instruction, q to quit",
		Args:  cobra.ExactArgs(1),
	}
	luaPath := luaFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		runner, closer, err := newRunner(args[0], *luaPath, cfg)
		if err != nil {
			return err
		}
		defer closer()
		return runInteractiveSteps(runner)
	}
	commonConfigFlags(cmd, &cfg)
	return cmd
}

// runInteractiveSteps puts stdin in raw mode so a single keystroke advances
// one instruction without waiting on Enter.
func runInteractiveSteps(runner *CPUX86Runner) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw terminal mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cpu := runner.GetCPU()
	buf := make([]byte, 1)
	for {
		printStepState(cpu)
		if _, err := os.Stdin.Read(buf); err != nil {
			return nil
		}
		if buf[0] == 'q' || buf[0] == 'Q' || buf[0] == 0x03 {
			return nil
		}
		if runner.Step() == 0 {
			term.Restore(fd, oldState)
			printFinalState(cpu)
			return cpu.LastFault()
		}
	}
}

func newFunctionsCmd() *cobra.Command {
	var cfg CPUX86Config
	var outFile string
	cmd := &cobra.Command{
		Use:   "functions <program.com>",
		Short: "Run to completion and emit the CALL/RET function-dump report",
		Args:  cobra.ExactArgs(1),
	}
	luaPath := luaFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		runner, closer, err := newRunner(args[0], *luaPath, cfg)
		if err != nil {
			return err
		}
		defer closer()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := runner.Execute(ctx); err != nil && err != context.Canceled {
			fmt.Fprintf(os.Stderr, "execution halted: %v\n", err)
		}

		out := os.Stdout
		if outFile != "" {
			f, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("creating report file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return runner.GetCPU().FunctionHandlerReport().WriteReport(out)
	}
	commonConfigFlags(cmd, &cfg)
	cmd.Flags().StringVar(&outFile, "out", "", "write the report to this file instead of stdout")
	return cmd
}

// newDebugCmd drives the DebuggableCPU interface (debug_interface.go) end
// to end: it sets breakpoints via the ParseAddress/DebugX86 machinery,
// runs under DebugX86.Resume() instead of the runner's own Execute loop,
// and reports registers and a call backtrace at each stop.
func newDebugCmd() *cobra.Command {
	var cfg CPUX86Config
	var breakAddrs []string
	var breakConds []string
	var backtraceDepth int
	cmd := &cobra.Command{
		Use:   "debug <program.com>",
		Short: "Run under one or more breakpoints, reporting registers and a backtrace at each stop",
		Args:  cobra.ExactArgs(1),
	}
	luaPath := luaFlag(cmd)
	cmd.Flags().StringArrayVar(&breakAddrs, "break", nil,
		"set a breakpoint at a physical address (e.g. 0x100 or $100), repeatable")
	cmd.Flags().StringArrayVar(&breakConds, "break-cond", nil,
		"condition for the --break at the same index, e.g. AX==$5 or hitcount>2 (optional, one per --break)")
	cmd.Flags().IntVar(&backtraceDepth, "backtrace-depth", 8, "call frames to report at each stop")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(breakAddrs) == 0 {
			return fmt.Errorf("debug requires at least one --break address; use 'run' to execute without stopping")
		}
		runner, closer, err := newRunner(args[0], *luaPath, cfg)
		if err != nil {
			return err
		}
		defer closer()

		dbg := NewDebugX86(runner.GetCPU(), runner)
		for i, s := range breakAddrs {
			addr, ok := ParseAddress(s)
			if !ok {
				return fmt.Errorf("invalid breakpoint address %q", s)
			}
			if i < len(breakConds) && breakConds[i] != "" {
				cond, err := ParseCondition(breakConds[i])
				if err != nil {
					return fmt.Errorf("invalid --break-cond %q: %w", breakConds[i], err)
				}
				dbg.SetConditionalBreakpoint(addr, cond)
			} else {
				dbg.SetBreakpoint(addr)
			}
		}

		events := make(chan BreakpointEvent, 1)
		dbg.SetBreakpointChannel(events, 0)

		for {
			dbg.Resume()
			for dbg.IsRunning() {
				time.Sleep(time.Millisecond)
			}

			hitBP := false
			select {
			case ev := <-events:
				hitBP = true
				msg := fmt.Sprintf("breakpoint hit at %05X", ev.Address)
				if bp := dbg.GetConditionalBreakpoint(ev.Address); bp != nil && bp.Condition != nil {
					msg += fmt.Sprintf(" (%s)", FormatCondition(bp.Condition))
				}
				fmt.Println(msg)
			default:
			}
			printDebugState(dbg, backtraceDepth)

			if runner.GetCPU().Halted || runner.GetCPU().LastFault() != nil || !hitBP {
				break
			}
			dbg.Step() // step past the breakpoint before resuming
		}
		return runner.GetCPU().LastFault()
	}
	commonConfigFlags(cmd, &cfg)
	return cmd
}

func printDebugState(dbg *DebugX86, depth int) {
	fmt.Printf("pc=%05X\n", dbg.GetPC())
	for _, r := range dbg.GetRegisters() {
		fmt.Printf("  %-5s = %04X\n", r.Name, r.Value)
	}
	frames := backtrace(dbg, depth)
	if len(frames) == 0 {
		return
	}
	fmt.Println("backtrace:")
	for _, addr := range frames {
		fmt.Printf("  %04X:%04X\n", addr>>16, addr&0xFFFF)
	}
}

func printFinalState(cpu *CPU_X86) {
	fmt.Printf("halted at %04X:%04X after %d instructions\n", cpu.CS, cpu.IP, cpu.Cycles)
	if fault := cpu.LastFault(); fault != nil {
		fmt.Printf("fault: %v\n", fault)
	}
}

func printStepState(cpu *CPU_X86) {
	fmt.Printf("\r%04X:%04X AX=%04X BX=%04X CX=%04X DX=%04X SI=%04X DI=%04X BP=%04X SP=%04X FLAGS=%04X\n",
		cpu.CS, cpu.IP, cpu.AX(), cpu.BX(), cpu.CX(), cpu.DX(), cpu.SI, cpu.DI, cpu.BP, cpu.SP, cpu.Flags)
}
