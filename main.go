package main

import "github.com/ercarpio/SG-CNN/cmd"

func main() {
	cmd.Execute()
}
