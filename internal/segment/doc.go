// Package segment cuts source documents into ordered translation fragments at
// sentence or paragraph granularity.
package segment
