package main

import "github.com/camptocamp/oca-port/cmd"

func main() {
	cmd.Execute()
}
