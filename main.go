package main

import "github.com/iksnae/dietchat/cmd"

func main() {
	cmd.Execute()
}
