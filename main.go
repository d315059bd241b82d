package main

import (
	"vpsdeploy/cmd"
)

func main() {
	cmd.Execute()
}
