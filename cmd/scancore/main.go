// Command scancore is the reference driver for the safer-buffer / scanner
// set / feature-recorder pipeline: it wires a configuration, a feature
// recorder set, and the echo reference scanner together and runs one
// input file through the full INIT -> ENABLED -> SCAN -> SHUTDOWN
// lifecycle.
package main

func main() {
	execute()
}
