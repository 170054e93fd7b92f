// Package main hosts the daemonkit CLI entrypoint and command graph.
//
// The Cobra command tree maps start, stop, restart and status onto a
// daemon.Controller assembled by daemonrun, and adds history, logs and
// config utilities. start and restart re-execute this binary to detach, so every
// flag that shapes the daemon must survive the round trip through
// daemonctl.StartArgs.
package main
