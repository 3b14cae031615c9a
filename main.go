package main

import "github.com/AzielCF/az-chat/cmd"

func main() {
	cmd.Execute()
}
