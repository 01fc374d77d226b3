package main

import "github.com/oshokin/usage-alarms/cmd/alarm-monitor/cmd"

func main() {
	cmd.Execute()
}
