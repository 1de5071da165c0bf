package main

import "github.com/agentic-research/easel/cmd"

func main() {
	cmd.Execute()
}
