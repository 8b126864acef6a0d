package main

import "github.com/devicelab-dev/appcheck/pkg/cli"

func main() {
	cli.Execute()
}
