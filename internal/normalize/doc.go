// Package normalize turns free-form strings and amounts into comparable
// tokens and renderings.
//
// Every function is total: unparseable or empty input yields an empty result.
package normalize
