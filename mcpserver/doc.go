// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// session tools (eval, reset, info, pkg, activate) over the mark3labs/mcp-go
// library. Tool handlers validate parameters at this boundary: anything
// attributable to user input or user code comes back as a text result the
// calling agent can read, while infrastructure failures (worker spawn, IPC)
// propagate as tool errors.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
