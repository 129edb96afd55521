package main

import "github.com/chrisdamba/stationflow/cmd"

func main() {
	cmd.Execute()
}
