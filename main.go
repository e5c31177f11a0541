package main

import "github.com/cbt-marketplace/apiserver/cmd"

func main() {
	cmd.Execute()
}
