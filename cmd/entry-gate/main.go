// Command entry-gate runs the height-gated NFC entry controller.
package main

import "github.com/sweeney/entry-gate/internal/cli"

func main() {
	cli.Execute()
}
