package main

import "github.com/devicelab-dev/screen-crawler/pkg/cli"

func main() {
	cli.Execute()
}
