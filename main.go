package main

import "github.com/khanhnv2901/phishcheck/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
