package main

import "github.com/juststeveking/sagedeploy/cmd"

func main() {
	cmd.Execute()
}
