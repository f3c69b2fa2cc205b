// Package storage defines the persistence interfaces for the offline edge.
//
// It provides a high-level abstraction for storing the product catalog and
// the change-detection digest slot. Implementations of these interfaces
// (e.g., using bbolt) can be found in subpackages.
//
// # Error Types
//
//   - ErrNotFound: Indicates a requested record or slot is missing.
package storage
