// Package types defines core domain types for toolproxy.
//
//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical toolproxy version.
// The telemetry record schema shares this version (lockstep versioning).
const Version = "0.3.0"

// RecordVersion is the telemetry record schema version stamped on every
// stored record.
const RecordVersion = Version
