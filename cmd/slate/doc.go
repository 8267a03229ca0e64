// Package main hosts the slate CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into scene
// operations: importing XMEML and AAF documents, exporting the scene back to
// XMEML, inspecting scene contents, and configuration scaffolding. It
// centralizes configuration resolution, scene store access, and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
