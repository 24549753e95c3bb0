package main

import "github.com/admitguard/admitguard/internal/cli"

func main() {
	cli.Execute()
}
