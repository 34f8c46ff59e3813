// Command signbridge runs the SignBridge client, the bundled prediction
// service and a few maintenance commands.
package main

func main() {
	Execute()
}
