package main

import "BeatStudio/cmd"

func main() {
	cmd.Execute()
}
