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
	"crypto/tls"
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
	myApp.Name = "flowio-server"
	myApp.Usage = "length-prefixed echo/broadcast relay server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: "0.0.0.0:12948",
			Usage: "local listen address, or a filesystem path for a Unix socket",
		},
		cli.IntFlag{
			Name:  "backlog",
			Value: 0,
			Usage: "listen backlog, 0 uses the platform default",
		},
		cli.IntFlag{
			Name:  "maxsessions",
			Value: 0,
			Usage: "cap on concurrent sessions, 0 disables the cap",
		},
		cli.BoolFlag{
			Name:  "broadcast",
			Usage: "echo every message to every connected session instead of just its sender",
		},
		cli.StringFlag{
			Name:  "tlscert",
			Value: "",
			Usage: "TLS certificate file; set together with tlskey to require TLS",
		},
		cli.StringFlag{
			Name:  "tlskey",
			Value: "",
			Usage: "TLS private key file",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress the session open/close lines",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		listen := c.String("listen")
		backlog := c.Int("backlog")
		maxSessions := c.Int("maxsessions")
		broadcast := c.Bool("broadcast")
		quiet := c.Bool("quiet")

		logln := func(v ...interface{}) {
			if !quiet {
				log.Println(v...)
			}
		}

		ep, err := endpoint.Parse(listen)
		checkError(err)

		r, err := reactor.New()
		checkError(err)
		defer r.Close()

		log.Println("version:", VERSION)
		log.Println("listening on:", listen)
		log.Println("broadcast:", broadcast)
		log.Println("maxsessions:", maxSessions)

		var opts []session.Option
		if maxSessions > 0 {
			opts = append(opts, session.MaxSessions(maxSessions))
		}

		if c.String("tlscert") != "" {
			cert, err := tls.LoadX509KeyPair(c.String("tlscert"), c.String("tlskey"))
			checkError(err)
			log.Println("tls: enabled")
			opts = append(opts, session.WithTLS(&tlsio.Config{Certificates: []tls.Certificate{cert}}))
		}

		var srv *session.Server
		newProto := func(sess *session.Session) protocol.Protocol {
			return protocol.NewLengthPrefixed(protocol.Header4, func(msg []byte) {
				body := append([]byte(nil), msg...)
				if broadcast {
					srv.Stream(frame(body))
				} else {
					sess.Publish(frame(body))
				}
			})
		}

		srv, err = session.Listen(r, ep, backlog, session.Handler{
			NewProtocol: newProto,
			OnSession: func(sess *session.Session) {
				if peer, err := sess.RemoteEndpoint(); err == nil {
					logln(color.GreenString("session opened"), sess.ID, peer.String())
				} else {
					logln(color.GreenString("session opened"), sess.ID)
				}
			},
			OnDisconnected: func(sess *session.Session, err error) {
				if err != nil {
					logln(color.RedString("session closed"), sess.ID, err)
				} else {
					logln(color.GreenString("session closed"), sess.ID)
				}
			},
			OnHandshake: func(sess *session.Session, info *tlsio.SessionInfo) {
				logln("tls handshake complete", sess.ID, info.Version, info.CipherSuite)
			},
			OnAcceptorDisconnected: func(err error) {
				color.Red("listener lost its socket: %v", err)
				os.Exit(1)
			},
		}, opts...)
		checkError(err)
		defer srv.Close()

		for {
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
