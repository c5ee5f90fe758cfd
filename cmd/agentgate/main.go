// agentgate is the runtime security gate for AI agent tool calls.
package main

import "github.com/ppiankov/agentgate/internal/cli"

func main() {
	cli.Execute()
}
