// Package constants centralizes defaults shared across the CLI and the scan engine.
//
// Probe timeouts, response size caps, file permissions and the results file
// name live here so cmd/ and internal/ reference one value without import cycles.
package constants
