// Package stage defines the contract every pipeline stage implements and the
// Health record stages report to the doctor command.
package stage
