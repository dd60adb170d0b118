package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	require.True(t, names["run"])
	require.True(t, names["step"])
	require.True(t, names["functions"])
	require.True(t, names["debug"])
}

func TestRunCmd_RequiresExactlyOneArg(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run"})
	root.SilenceErrors = true
	root.SilenceUsage = true
	err := root.Execute()
	require.Error(t, err)
}

func TestDebugCmd_StopsAtBreakpoint(t *testing.T) {
	dir := t.TempDir()
	program := dir + "/prog.com"
	// NOP; NOP; HLT — break on the second NOP at 0000:0101.
	require.NoError(t, os.WriteFile(program, []byte{0x90, 0x90, 0xF4}, 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"debug", program, "--break", "0x101"})
	root.SilenceErrors = true
	root.SilenceUsage = true
	require.NoError(t, root.Execute())
}

func TestDebugCmd_ConditionalBreakpoint(t *testing.T) {
	dir := t.TempDir()
	program := dir + "/prog.com"
	// MOV AX, 5; NOP; HLT — condition only fires once AX==5.
	require.NoError(t, os.WriteFile(program, []byte{0xB8, 0x05, 0x00, 0x90, 0xF4}, 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"debug", program, "--break", "0x103", "--break-cond", "AX==$5"})
	root.SilenceErrors = true
	root.SilenceUsage = true
	require.NoError(t, root.Execute())
}

func TestDebugCmd_RequiresABreakpoint(t *testing.T) {
	dir := t.TempDir()
	program := dir + "/prog.com"
	require.NoError(t, os.WriteFile(program, []byte{0xF4}, 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"debug", program})
	root.SilenceErrors = true
	root.SilenceUsage = true
	require.Error(t, root.Execute())
}

func TestFunctionsCmd_WritesReportToFile(t *testing.T) {
	dir := t.TempDir()
	program := dir + "/prog.com"
	// NOP; NOP; HLT
	require.NoError(t, os.WriteFile(program, []byte{0x90, 0x90, 0xF4}, 0o644))

	outPath := dir + "/report.txt"
	root := newRootCmd()
	root.SetArgs([]string{"functions", program, "--out", outPath})
	root.SilenceErrors = true
	root.SilenceUsage = true
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "function dump")
}
