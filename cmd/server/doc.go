// Package main is the entry point for the Data-mind MCP server.
//
// Data-mind implements a Model Context Protocol (MCP) server for AI-assisted
// analysis of tabular data. Model-generated JavaScript runs inside a
// capability-restricted interpreter with no filesystem, network, or process
// access; charts, derived tables and console output are collected from the
// run and returned to the caller. The server supports both stdio and HTTP
// transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
