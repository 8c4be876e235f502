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

package uri

// defaultPorts is a representative scheme->port table, not the full
// multi-hundred-entry IANA registry the original implementation ships
// (SPEC_FULL.md §D.3): the schemes spec.md §6 names explicitly, plus the
// handful the original special-cases for its own test fixtures. Extend by
// adding an entry here; lookups are case-insensitive (scheme is already
// lower-cased by Parse before this table is consulted).
var defaultPorts = map[string]uint16{
	"http":       80,
	"https":      443,
	"ws":         80,
	"wss":        443,
	"ftp":        21,
	"ssh":        22,
	"telnet":     23,
	"smtp":       25,
	"dns":        53,
	"tftp":       69,
	"gopher":     70,
	"pop3":       110,
	"ldap":       389,
	"ldaps":      636,
	"imap":       143,
	"snmp":       161,
	"syslog":     514,
	"mqtt":       1883,
	"mqtts":      8883,
	"redis":      6379,
	"postgresql": 5432,
	"mysql":      3306,
	"amqp":       5672,
	"amqps":      5671,
}

// DefaultPort returns the registered default port for scheme (already
// expected lower-case) and whether one is registered at all.
func DefaultPort(scheme string) (uint16, bool) {
	p, ok := defaultPorts[scheme]
	return p, ok
}

// RegisterScheme adds or overrides a scheme's default port, for embedders
// that speak a protocol not in the built-in table.
func RegisterScheme(scheme string, port uint16) {
	defaultPorts[scheme] = port
}
