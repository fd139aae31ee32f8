package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"

	"github.com/joho/godotenv"

	"github.com/barnybug/castbridge/services"
	"github.com/barnybug/castbridge/services/api"
	"github.com/barnybug/castbridge/services/cast"
	"github.com/barnybug/castbridge/services/datalogger"
	"github.com/barnybug/castbridge/services/sender"
)

func registerServices() {
	// register available services
	services.Register(&api.Service{})
	services.Register(&cast.Service{})
	services.Register(&datalogger.Service{})
	services.Register(&sender.Service{})
}

func usage() {
	fmt.Println("Usage: castbridge COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("   config  path files...     Update config")
	fmt.Println("   run     services...       Run services")
	fmt.Println("   status                    Get device status")
	fmt.Println("   devices                   List devices")
	fmt.Println("   notify  message [device]  Speak a notification")
	fmt.Println("   query   service [args]    Query a service")
	fmt.Println()
}

func main() {
	godotenv.Load()
	log.SetOutput(os.Stdout)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	ps := []string{}
	if flag.NArg() > 1 {
		ps = flag.Args()[1:]
	}

	services.SetupLogging()

	command := flag.Args()[0]
	switch command {
	default:
		usage()
	case "config":
		if len(ps) < 2 {
			usage()
			return
		}
		config(ps[0], ps[1:])
	case "status":
		query("cast/status", nil)
	case "devices":
		query("cast/devices", nil)
	case "notify":
		notify(ps)
	case "query":
		if len(ps) == 0 {
			usage()
			return
		}
		query(ps[0], ps[1:])
	case "run":
		service(ps)
	}
}

func notify(ps []string) {
	if len(ps) == 0 {
		usage()
		return
	}
	if overBus() {
		device := ""
		if len(ps) > 1 {
			device = ps[1]
		}
		busSay(ps[0], device)
		return
	}
	params := url.Values{"message": {ps[0]}}
	if len(ps) > 1 {
		params.Set("device", ps[1])
	}
	resp, err := request("notify", params)
	if err != nil {
		fmtFatalf("error: %s\n", err)
	}
	defer resp.Body.Close()
	io.Copy(os.Stdout, resp.Body)
}

// Start builtin services
func service(ss []string) {
	services.Setup("castbridge")
	registerServices()
	services.Launch(ss)
}
