package main

import "github.com/railwayapp/ctfhunter/cmd/ctfhunter"

func main() {
	ctfhunter.Execute()
}
