// Package protocol defines the message types exchanged between the server
// and the worker subprocess.
//
// The wire format is deliberately dumb: every request and response is a flat
// struct of strings, string lists, and enum tags, framed as newline-delimited
// JSON over the worker's stdin/stdout. Nothing callable ever crosses the
// process boundary; the worker-side dispatcher interprets the Op tag.
package protocol
