package main

import "github.com/trobanga/medreport/cmd"

func main() {
	cmd.Execute()
}
