package main

import "github.com/cockroachlabs/fio-report/cmd"

func main() {
	cmd.Execute()
}
