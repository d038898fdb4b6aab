package main

import (
	"github.com/robotalks/uartecho/pkg/cli/sh"

	_ "github.com/robotalks/uartecho/pkg/cli/cmds/link"
)

func init() {
	sh.SetupFlags()
}

func main() {
	sh.Main()
}
