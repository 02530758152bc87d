package main

import "github.com/jeremiehuchet/chatops-bot/cmd/chatops-bot/cli"

func main() {
	cli.Execute()
}
