package main

import "mp4tomp3/cmd"

func main() {
	cmd.Execute()
}
