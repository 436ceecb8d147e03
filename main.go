package main

import (
	"fmt"

	"github.com/artera/storaged/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
