// Command notes manages the signed-in user's notes through the notes API.
package main

import "os"

func main() {
	if err := newRootCmd(openRuntime).Execute(); err != nil {
		os.Exit(1)
	}
}
