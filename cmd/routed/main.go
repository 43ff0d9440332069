package main

import (
	"os"

	"github.com/meshroute/routeengine/cmd/routed/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
