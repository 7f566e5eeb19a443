// The main package for the scrd-crawler executable.
package main

import (
	"github.com/scrd/availability-crawler/cmd"
)

func main() {
	cmd.Execute()
}
