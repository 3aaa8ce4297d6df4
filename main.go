package main

import "shophand/cli"

func main() {
	cli.Execute()
}
