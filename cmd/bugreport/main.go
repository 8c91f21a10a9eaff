package main

import "github.com/ahnaf005/llm-bug-report/internal/cli"

func main() {
	cli.Execute()
}
