package main

import "github.com/KaramelBytes/pcview/cmd"

func main() {
	cmd.Execute()
}
