// Package plugin provides the sources, sinks, and dissectors that surround the dissection engine in pkg/dissect.
// Splitting these out into their own, independent (except what's provided in pkg) packages means that they can be omitted in favor of a smaller build size if the functionality isn't needed.
//
// "Source" functions should take input and return an iterator.Iterator of raw lines and potentially an error, and operate asynchronously.
// Sources should close any resources, like file handles or channels, and stop the associated goroutine when they have reached the end of their input.
//
// "Sink" functions should take an iterator.Iterator of dissected records - and optionally other parameters - and operate synchronously (the user may decide to call a Sink function in a goroutine).
// Sink functions should use iterator.Drain on an iterator if they encounter an error to prevent upstream blocking.
//
// Dissectors are registered into a shared dissect.Catalog, named "qualifier.name".
//
//	Current Plugins:
//	- httpd provides dissectors for Apache httpd access logs.
//	- cut provides delimiter based dissectors.
//	- file provides source and sink for files, including tail support.
//	- stdstream provides STDIN source and STDOUT/STDERR sinks.
//	- store provides SQLite source and sink.
package plugin
