// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"io"
	"path/filepath"
	"testing"
)

func TestTraceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	header := TraceHeader{RunID: NewRunID(), Scenario: "abc123"}

	writer, err := NewTraceWriter(path, header, nil)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}
	snapshots := []TickSnapshot{
		{Tick: 1, SimTime: 1.0 / 60, Agents: []AgentSnapshot{
			{ID: 0, X: 10, Y: 20, Battery: 100, Role: "follower", State: "idle"},
			{ID: 1, X: 30, Y: 40, VX: 1.5, Battery: 99.9, Role: "alpha", State: "searching"},
		}},
		{Tick: 2, SimTime: 2.0 / 60, Agents: []AgentSnapshot{
			{ID: 0, X: 11, Y: 20, Battery: 99.98, Role: "follower", State: "idle"},
		}},
	}
	for _, snapshot := range snapshots {
		writer.Write(snapshot)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := OpenTrace(path)
	if err != nil {
		t.Fatalf("OpenTrace: %v", err)
	}
	defer reader.Close()

	if got := reader.Header(); got != header {
		t.Fatalf("header = %+v, want %+v", got, header)
	}
	for i, want := range snapshots {
		got, err := reader.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if got.Tick != want.Tick || len(got.Agents) != len(want.Agents) {
			t.Fatalf("snapshot %d = %+v", i, got)
		}
		for j, agent := range want.Agents {
			if got.Agents[j] != agent {
				t.Fatalf("snapshot %d agent %d = %+v, want %+v", i, j, got.Agents[j], agent)
			}
		}
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Fatalf("err after last snapshot = %v, want EOF", err)
	}
}

func TestTraceWriterFailSoft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	writer, err := NewTraceWriter(path, TraceHeader{RunID: "r"}, nil)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}
	// Close the underlying file out from under the writer: the next
	// write must not panic, it disables the trace.
	writer.lz4.Close()
	writer.file.Close()

	writer.Write(TickSnapshot{Tick: 1})
	writer.Write(TickSnapshot{Tick: 2})
	if !writer.broken {
		t.Fatal("writer not marked broken after failed write")
	}
}
