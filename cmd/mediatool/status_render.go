package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// console writes status lines, coloured only when out is a terminal.
type console struct {
	out   io.Writer
	color bool
}

func newConsole(out io.Writer) console {
	return console{out: out, color: isTerminal(out)}
}

func (c console) status(label string, kind statusKind, message string) {
	fmt.Fprintln(c.out, c.paint(kind, formatStatus(label, kind, message)))
}

func (c console) section(title string) {
	fmt.Fprintln(c.out, c.paint(statusInfo, "== "+strings.TrimSpace(title)+" =="))
}

func (c console) println(text string) {
	fmt.Fprintln(c.out, text)
}

func (c console) paint(kind statusKind, text string) string {
	if !c.color {
		return text
	}
	return statusStyles[kind].color + text + ansiReset
}

func formatStatus(label string, kind statusKind, message string) string {
	text := fmt.Sprintf("  %-18s [%s]", label+":", statusStyles[kind].label)
	if message != "" {
		text += " " + message
	}
	return text
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
