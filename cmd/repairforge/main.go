package main

import "github.com/entrepeneur4lyf/repairforge/cmd/repairforge/cmd"

func main() {
	cmd.Execute()
}
