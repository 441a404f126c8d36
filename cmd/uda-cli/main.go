package main

import (
	"uda-connector/cmd/uda-cli/commands"
	"uda-connector/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
