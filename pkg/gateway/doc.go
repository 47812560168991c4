// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package gateway assembles the proxied route table: it fetches the remote
// interface description once, builds the route descriptors, synthesizes one
// handler per route and publishes them atomically. Until assembly succeeds
// every call is answered with 503.
//
// A few endpoints under /_gateway/ are always served locally:
//
//	GET /_gateway/healthz  readiness of the route table
//	GET /_gateway/routes   read-only listing of the assembled routes
//	GET /_gateway/metrics  prometheus metrics
package gateway
