package main

import (
	"github.com/osilab/ometiff/cmd/ometiff/cmd"
)

func main() {
	cmd.Execute()
}
