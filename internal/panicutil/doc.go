// Package panicutil runs functions so that panics and runtime.Goexit can be carried across goroutines.
package panicutil
