package main

import "github.com/mooover/mooover-services/cmd"

func main() {
	cmd.Execute()
}
