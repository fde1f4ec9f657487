package main

import "github.com/mmiyara/govee-remote/cmd"

func main() {
	cmd.Execute()
}
