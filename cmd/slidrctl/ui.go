package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	errorColor   = color.New(color.FgRed, color.Bold)
	slideColor   = color.New(color.FgYellow, color.Bold)
)

func initUI(disable bool) {
	if disable {
		color.NoColor = true
	}
}

func success(format string, args ...interface{}) {
	successColor.Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func info(format string, args ...interface{}) {
	infoColor.Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

func failure(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

func slideLine(index, count int) string {
	if count > 0 {
		return slideColor.Sprintf("slide %d/%d", index+1, count)
	}
	return slideColor.Sprintf("slide %d", index+1)
}
