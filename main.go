package main

import (
	"github.com/anoixa/image-helper/cmd"
)

func main() {
	cmd.Execute()
}
