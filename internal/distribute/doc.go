// Package distribute performs round-robin assignment of ordered fragments
// across a translator roster.
package distribute
