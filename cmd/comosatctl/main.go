/*
 * COMOSAT - An SDN Control Plane for Space-Air-Ground Integrated Networks
 *
 * Copyright (C) 2025-2026 SAGIN SDN Project. All rights reserved.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// comosatctl is the command-line client of the comosat REST API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sagin-sdn/comosat"
)

var (
	showVersion = flag.Bool("version", false, "show program version and exit")
	baseURL     = flag.String("url", "http://127.0.0.1:7780", "base URL of the comosat REST API")
	username    = flag.String("username", "", "basic auth username (empty disables auth)")
	password    = flag.String("password", "", "basic auth password")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %v [flags] <command>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  stats           show the control-plane counters\n")
	fmt.Fprintf(os.Stderr, "  membership      show the active domain membership\n")
	fmt.Fprintf(os.Stderr, "  slot            show the current slot number\n")
	fmt.Fprintf(os.Stderr, "  advance         advance to the next scenario slot\n")
	fmt.Fprintf(os.Stderr, "  switches        list the connected switches\n")
	fmt.Fprintf(os.Stderr, "  history <slot>  show the remapping rows of a slot\n")
	fmt.Fprintf(os.Stderr, "  reports         show the most recent slot reports\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", comosat.Version)
		os.Exit(0)
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	client, err := newSDK(*baseURL, *username, *password)
	if err != nil {
		fatalf("invalid URL: %v", err)
	}

	var data json.RawMessage
	switch cmd := flag.Arg(0); cmd {
	case "stats":
		data, err = client.call("GET", "/api/v1/stats")
	case "membership":
		data, err = client.call("GET", "/api/v1/membership")
	case "slot":
		data, err = client.call("GET", "/api/v1/slot")
	case "advance":
		data, err = client.call("POST", "/api/v1/slot/advance")
	case "switches":
		data, err = client.call("GET", "/api/v1/switches")
	case "history":
		if flag.NArg() < 2 {
			fatalf("history requires a slot number")
		}
		slot, perr := strconv.ParseUint(flag.Arg(1), 10, 64)
		if perr != nil {
			fatalf("invalid slot number: %v", flag.Arg(1))
		}
		data, err = client.call("GET", fmt.Sprintf("/api/v1/history?slot=%v", slot))
	case "reports":
		data, err = client.call("GET", "/api/v1/reports")
	default:
		fatalf("unknown command: %v", cmd)
	}
	if err != nil {
		fatalf("%v", err)
	}

	print(data)
}

func print(data json.RawMessage) {
	if len(data) == 0 {
		fmt.Println("OK")
		return
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		fatalf("malformed response payload: %v", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(string(out))
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
