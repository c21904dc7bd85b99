package main

import "github.com/atikulmunna/vislog/internal/cmd"

func main() {
	cmd.Execute()
}
