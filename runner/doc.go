// Package runner executes discovered hardware validation test cases.
//
// Test cases run strictly one after another against a single system under
// test. Each descriptor is first loaded through the catalog; one that cannot
// be loaded is recorded as invalid and never executed. Every executed test
// case yields exactly one record with status passed, failed or error.
package runner
