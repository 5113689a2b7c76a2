// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on the message bus and
// in run traces.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer widths, no indefinite-length items. The
// same heartbeat or tick snapshot always encodes to identical bytes,
// which keeps run traces diffable and makes scenario digests stable.
//
// Decoding accepts standard CBOR and ignores unknown fields, so a
// trace written by a newer engine still loads in an older reader.
package codec
