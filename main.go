package main

import "bizflow/cmd"

func main() {
	cmd.Execute()
}
