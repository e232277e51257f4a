package main

import "docochat/cmd"

func main() {
	cmd.Execute()
}
