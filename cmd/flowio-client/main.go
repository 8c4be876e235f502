// The MIT License (MIT)
//
// Copyright (c) 2024 flowio contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/protocol"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/session"
	"github.com/flowio/flowio/tlsio"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "flowio-client"
	myApp.Usage = "length-prefixed relay client, reads stdin lines and prints server replies"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "remoteaddr,r",
			Value: "127.0.0.1:12948",
			Usage: `server address, eg: "IP:12948"`,
		},
		cli.BoolFlag{
			Name:  "tls",
			Usage: "negotiate TLS with the server",
		},
		cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
		cli.StringFlag{
			Name:  "servername",
			Value: "",
			Usage: "expected TLS server name (SNI), defaults to the host part of remoteaddr",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		remote := c.String("remoteaddr")
		ep, err := endpoint.Parse(remote)
		checkError(err)

		r, err := reactor.New()
		checkError(err)
		defer r.Close()

		log.Println("version:", VERSION)
		log.Println("remote address:", remote)
		log.Println("tls:", c.Bool("tls"))

		var opts []session.ClientOption
		if c.Bool("tls") {
			serverName := c.String("servername")
			if serverName == "" && ep.Family() != endpoint.Unix {
				serverName = ep.IP().String()
			}
			opts = append(opts, session.WithClientTLS(&tlsio.Config{
				ServerName:         serverName,
				InsecureSkipVerify: c.Bool("insecure"),
			}))
		}

		done := make(chan struct{})
		var current *session.Session

		newProto := func(sess *session.Session) protocol.Protocol {
			return protocol.NewLengthPrefixed(protocol.Header4, func(msg []byte) {
				fmt.Println(string(msg))
			})
		}

		sess, err := session.Connect(r, ep, newProto,
			func(s *session.Session) {
				current = s
				color.Green("connected")
			},
			func(s *session.Session, err error) {
				if err != nil {
					color.Red("disconnected: %v", err)
				} else {
					color.Green("disconnected")
				}
				close(done)
			},
			opts...,
		)
		checkError(err)
		current = sess

		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				r.Post(func() {
					if current != nil {
						current.Publish(frame([]byte(line)))
					}
				})
			}
			r.Post(func() {
				if current != nil {
					current.Disconnect()
				}
			})
		}()

		for {
			select {
			case <-done:
				return nil
			default:
			}
			if err := r.Run(reactor.RunDefault); err != nil {
				log.Fatalf("%+v", err)
			}
		}
	}
	myApp.Run(os.Args)
}

func frame(body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(len(body) >> 24)
	out[1] = byte(len(body) >> 16)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
