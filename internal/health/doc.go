// Package health holds the liveness and readiness probes for the blog and
// the plain text handlers that expose them on /-/healthy and /-/ready.
//
// Probes compose with [All] and [Named]. [ShutdownGate] fails readiness as soon
// as shutdown begins so the load balancer drains the instance before the
// listeners close. The content manager is itself a Probe that fails until a
// snapshot is loaded.
package health
