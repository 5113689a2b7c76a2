// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package perception is the engine's interface to the external
// decision collaborator. A Decider turns a textual scene description
// into a single command token. Two implementations ship: Heuristic, a
// keyword classifier used standalone or as the fallback, and Model, an
// OpenAI-compatible chat-completions client (Ollama, vLLM, llama.cpp,
// and the hosted APIs all speak this wire format).
//
// Deciders may be slow or fail; the engine calls them with per-agent
// timeouts and applies the heuristic when a call does not produce a
// usable command. Nothing in this package is fatal to a tick.
package perception
