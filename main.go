package main

import "github.com/flashmemo/flashmemo/cmd"

func main() {
	cmd.Execute()
}
