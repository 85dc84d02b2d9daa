package main

import "github.com/senoxone/qbshop/internal/cli"

func main() {
	cli.Execute()
}
