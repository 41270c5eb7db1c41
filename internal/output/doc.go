// Package output provides deterministic encoding for the documents
// featuremap writes.
//
// Identical inputs produce byte-identical output:
//
//  1. Object keys are sorted alphabetically
//  2. Floats are rounded to at most 6 decimal places
//  3. Nil values, empty maps and empty slices are omitted
//
// The package also renders the documentation-site blob and orders health
// rows for display.
package output
