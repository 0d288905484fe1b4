package main

import "servicebook/cmd"

func main() {
	cmd.Execute()
}
