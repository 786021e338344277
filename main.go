package main

import (
	"github.com/gpufanctl/gpufanctl/cmd"
)

func main() {
	cmd.Execute()
}
