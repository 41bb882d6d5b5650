package main

import (
	"github.com/tanpawarit/Chative-Commerce-Router/cmd"
	_ "github.com/tanpawarit/Chative-Commerce-Router/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
