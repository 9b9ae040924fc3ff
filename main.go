package main

import "github.com/frahmantamala/plant-operations/cmd"

func main() {
	cmd.Execute()
}
