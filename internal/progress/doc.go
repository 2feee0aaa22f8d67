// Package progress provides terminal progress reporting for long-running
// transfers and exports, plus helpers for parsing and formatting
// human-readable byte sizes.
package progress
