// The main package for the gemini-search executable.
package main

import (
	"github.com/JakeFAU/gemini-search/cmd"
)

func main() {
	cmd.Execute()
}
