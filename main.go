package main

import "fmcw/cmd"

func main() {
	cmd.Execute()
}
