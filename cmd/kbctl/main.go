// Command kbctl is a client for the knowledge-base MCP gateway.
package main

import "github.com/Knowledge-Gate/kbgate/cmd/kbctl/cmd"

func main() {
	cmd.Execute()
}
