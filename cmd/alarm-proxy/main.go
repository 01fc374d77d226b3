package main

import "github.com/oshokin/usage-alarms/cmd/alarm-proxy/cmd"

func main() {
	cmd.Execute()
}
