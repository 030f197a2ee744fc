package main

import "github.com/mirage-db/mirage/cmd"

func main() {
	cmd.Execute()
}
