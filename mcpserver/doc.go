// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// data-analysis tools. It uses the mark3labs/mcp-go library to handle the
// protocol details and provides three tools: execute_analysis_code runs a
// JavaScript snippet in the restricted sandbox against a CSV dataset,
// summarize_dataset profiles a dataset, and ask_analyst drives the AI
// analyst conversation including the verification round trip.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, executor, analyst)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
