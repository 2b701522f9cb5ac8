// The main package for the sentiment executable.
package main

import (
	"github.com/JakeFAU/concurrent-sentiment/cmd"
)

func main() {
	cmd.Execute()
}
