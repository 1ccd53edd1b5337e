// Package unit defines the work packet and work item domain model: lifecycle
// statuses, the legal-transition table, and quality-score derivation.
package unit
