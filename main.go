package main

import (
	"example.com/greenhouse/services/gateway/cmd"
)

func main() {
	cmd.Execute()
}
