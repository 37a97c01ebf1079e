package main

import "github.com/BerylCAtieno/franchise-marketing-advisor/internal/cli"

func main() {
	cli.Execute()
}
