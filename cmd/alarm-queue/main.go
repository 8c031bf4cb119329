package main

import "github.com/oshokin/alarm-queue/cmd/alarm-queue/cmd"

func main() {
	cmd.Execute()
}
