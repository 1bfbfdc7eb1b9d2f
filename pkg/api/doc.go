// Package api defines the public types of the campflow workflow:
// the campaign request and run model, the agent port, the ordered event
// stream, the history store, and the coordinator contract.
//
// Implementations live under internal/; most users import the root
// campflow package, which re-exports everything here.
package api
