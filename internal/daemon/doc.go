// Package daemon drives the lifecycle of a single background service
// instance.
//
// A Controller owns the pidfile and composes the detacher, the stream
// redirector and the terminator into start, stop and restart operations:
//
//	start    read pidfile, detach, redirect, write own pid, run the hook
//	stop     signal the recorded pid until it is gone, remove the pidfile
//	restart  stop, then start
//
// The pidfile is the only shared state between invocations. Its presence is
// a claim that the instance is alive; Start refuses to proceed while any
// claim exists and Stop reconciles claims whose process has died.
//
// The ServiceHook runs in the fully detached process. Its context is
// cancelled on SIGTERM or SIGINT; once cancelled, further signals take their
// default action, so a hook that ignores cancellation is still stopped by
// the next SIGTERM from Stop.
package daemon
