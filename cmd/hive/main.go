package main

import "github.com/jbjoujoute/hive/internal/cli"

func main() {
	cli.Execute()
}
