// Command subforge is the CLI entry point for the subtitle pipeline: it
// enqueues jobs, runs the workflow manager, and exposes queue and
// configuration utilities.
package main
