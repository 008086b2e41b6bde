package main

import (
	"os"

	"github.com/Harounas/KrakenKit/krakenkit/cmd"
)

func main() {
	cmd.Execute(os.Args[1:])
}
