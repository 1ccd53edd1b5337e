// Package main hosts the Loom CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the full lifecycle: packet creation and
// inspection, translator drafting and submission, the reviewer queue with
// approve/reject decisions, dataset export, the HTTP API server, and
// configuration scaffolding. It centralizes configuration resolution and
// actor identity so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
