package main

import "ireport/cmd/reporter/cmd"

func main() {
	cmd.Execute()
}
