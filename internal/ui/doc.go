// Package ui renders terminal output for the wificfg CLI.
//
// Output follows a "print once and exit" pattern built on Lipgloss: a Header
// banner naming the operation and its target, tables for scan results and
// discovered devices, and Result boxes for the outcome of a change, with
// troubleshooting lines on failure. Prompter reads passwords and
// confirmations from a terminal through golang.org/x/term.
//
// Commands write through a Printer so tests can capture the output:
//
//	p := ui.NewPrinter(cmd.OutOrStdout())
//	p.PrintHeader("Apply settings", "wificfg set",
//	    ui.Param{Key: "Device", Value: "192.168.4.1:8080"})
//	p.PrintSuccess("Settings applied", ui.Param{Key: "Attempts", Value: "1"})
package ui
