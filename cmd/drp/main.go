package main

import "datarescue-backend/cmd/drp/cmd"

func main() {
	cmd.Execute()
}
