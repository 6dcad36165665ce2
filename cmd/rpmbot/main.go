package main

import (
	"os"

	"github.com/rpmbot/rpmbot/cmd/rpmbot/commands"
)

func main() {
	os.Exit(commands.Main(os.Args[1:]))
}
