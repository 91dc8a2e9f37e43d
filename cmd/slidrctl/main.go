// Command slidrctl renders decks locally and drives live sessions over Redis.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
