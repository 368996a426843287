package main

import "ireport/cmd/console/cmd"

func main() {
	cmd.Execute()
}
