package main

import "github.com/jkatofsky/plastering/internal/cmd"

func main() {
	cmd.Execute()
}
