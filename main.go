// The main package for the regwatch executable.
package main

import (
	"github.com/kodexai/regwatch/cmd"
)

func main() {
	cmd.Execute()
}
