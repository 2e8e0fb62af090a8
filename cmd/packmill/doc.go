// Command packmill drives long-running jobs on a pack worker: it starts
// conversions, patches, and publishes, polls their progress, and reports the
// outcome.
package main
