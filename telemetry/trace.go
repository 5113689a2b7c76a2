// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"

	"github.com/muster-robotics/muster/lib/codec"
)

// TraceHeader opens every trace stream.
type TraceHeader struct {
	RunID    string `cbor:"run_id"`
	Scenario string `cbor:"scenario"` // content digest of the scenario
}

// AgentSnapshot is one agent's state at one tick.
type AgentSnapshot struct {
	ID      int     `cbor:"id"`
	X       float64 `cbor:"x"`
	Y       float64 `cbor:"y"`
	VX      float64 `cbor:"vx"`
	VY      float64 `cbor:"vy"`
	Battery float64 `cbor:"battery"`
	Role    string  `cbor:"role"`
	State   string  `cbor:"state"`
}

// TickSnapshot is the full swarm state at one tick.
type TickSnapshot struct {
	Tick    int64           `cbor:"tick"`
	SimTime float64         `cbor:"sim_time"`
	Agents  []AgentSnapshot `cbor:"agents"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// TraceWriter records tick snapshots as a CBOR stream inside an LZ4
// frame. Writes are fail-soft: the first error disables the writer and
// is logged; subsequent writes are silent no-ops. A broken trace never
// fails a simulation.
type TraceWriter struct {
	file    *os.File
	lz4     *lz4.Writer
	encoder *codec.Encoder
	logger  *slog.Logger
	broken  bool
}

// NewTraceWriter creates the trace file and writes the header.
func NewTraceWriter(path string, header TraceHeader, logger *slog.Logger) (*TraceWriter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	compressor := lz4.NewWriter(file)
	writer := &TraceWriter{
		file:    file,
		lz4:     compressor,
		encoder: codec.NewEncoder(compressor),
		logger:  logger,
	}
	if err := writer.encoder.Encode(header); err != nil {
		compressor.Close()
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing trace header: %w", err)
	}
	return writer, nil
}

// Write appends one tick snapshot.
func (w *TraceWriter) Write(snapshot TickSnapshot) {
	if w.broken {
		return
	}
	if err := w.encoder.Encode(snapshot); err != nil {
		w.broken = true
		w.logger.Error("trace write failed, disabling trace", "tick", snapshot.Tick, "error", err)
	}
}

// Close flushes the compressor and closes the file.
func (w *TraceWriter) Close() error {
	lzErr := w.lz4.Close()
	fileErr := w.file.Close()
	if lzErr != nil {
		return fmt.Errorf("closing trace compressor: %w", lzErr)
	}
	if fileErr != nil {
		return fmt.Errorf("closing trace file: %w", fileErr)
	}
	return nil
}

// TraceReader replays a trace stream.
type TraceReader struct {
	file    *os.File
	decoder *codec.Decoder
	header  TraceHeader
}

// OpenTrace opens a trace file and reads its header.
func OpenTrace(path string) (*TraceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	decoder := codec.NewDecoder(lz4.NewReader(file))

	var header TraceHeader
	if err := decoder.Decode(&header); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading trace header: %w", err)
	}
	return &TraceReader{file: file, decoder: decoder, header: header}, nil
}

// Header returns the trace header.
func (r *TraceReader) Header() TraceHeader { return r.header }

// Next returns the next tick snapshot, or io.EOF at end of stream.
func (r *TraceReader) Next() (TickSnapshot, error) {
	var snapshot TickSnapshot
	if err := r.decoder.Decode(&snapshot); err != nil {
		if errors.Is(err, io.EOF) {
			return TickSnapshot{}, io.EOF
		}
		return TickSnapshot{}, fmt.Errorf("reading trace snapshot: %w", err)
	}
	return snapshot, nil
}

// Close closes the underlying file.
func (r *TraceReader) Close() error { return r.file.Close() }
