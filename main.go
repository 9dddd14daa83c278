package main

import "github.com/harshpatel5940/reelmark/cmd"

func main() {
	cmd.Execute()
}
