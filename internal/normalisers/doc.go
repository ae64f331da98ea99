// Package normalisers is the document loader: a registry mapping file
// extensions to format-specific text extractors.
//
// Each sub-package implements driven.Normaliser for one format family.
// RegisterDefaults installs the built-in set; adding a format is a
// Register call, never an edit to a shared dispatch function.
package normalisers
