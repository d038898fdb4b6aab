// Package uart binds an echo engine to a byte transport.
//
// A Link reads one byte at a time from a Port, asks its echo.Engine what to
// transmit, and writes the result back verbatim. Ports are serial devices
// (go.bug.st/serial), raw TCP sockets (e.g. ser2net) or websockets.
package uart
