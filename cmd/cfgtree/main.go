// Command cfgtree inspects and edits the demo settings tree.
package main

import "github.com/mesh-intelligence/cfgtree/internal/cli"

func main() {
	cli.Execute()
}
