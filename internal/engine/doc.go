// Package engine implements the work-unit lifecycle: packet creation through
// segmentation and round-robin distribution, translator draft and submission
// guards, and reviewer decisions, all authorized against role and ownership.
package engine
