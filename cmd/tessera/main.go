package main

import (
	"github.com/tesserachain/tessera/cmd/tessera/cmd"
)

func main() {
	cmd.Execute()
}
