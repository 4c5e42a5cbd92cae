package main

import (
	"github.com/querylens/querylens/internal/cmd"
)

func main() {
	cmd.Execute()
}
