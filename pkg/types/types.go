// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the summa-engine pipeline:
// the immutable settings record, the retrieved paper catalog, hypotheses with
// their critique and ranking substructure, and the final/partial payloads.
package types
