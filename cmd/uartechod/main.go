package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartecho/pkg/framework"
	"github.com/robotalks/uartecho/pkg/env"
	"github.com/robotalks/uartecho/pkg/uart"
)

var listPorts bool

func init() {
	env.SetupFlags()
	flag.BoolVar(&listPorts, "list-ports", listPorts, "List serial ports and exit.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if listPorts {
		ports, err := uart.ListPorts()
		if err != nil {
			glog.Exitf("list ports: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(ports)
		return
	}

	d, err := env.NewConfig().NewDaemon()
	if err != nil {
		glog.Exitln(err)
	}
	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("daemon", fx.RunFunc(d.Run)))
	if err := runner.Wait(); err != nil {
		glog.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	glog.Infof("stopped after %d bytes", d.Link.Stats().Processed)
}
