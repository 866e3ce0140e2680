// Package main is the entry point for the replbox MCP server.
//
// Replbox gives an AI agent a long-lived code-execution session: instead of
// paying interpreter startup cost on every command, the server keeps one
// persistent worker subprocess whose top-level namespace survives across
// evaluations. The server supports both stdio and HTTP transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration. On shutdown the fx lifecycle kills the worker so no orphan
// process is left behind.
package main
