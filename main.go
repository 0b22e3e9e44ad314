package main

import "github.com/Mohsinsiddi/tokendash/cmd"

func main() {
	cmd.Execute()
}
