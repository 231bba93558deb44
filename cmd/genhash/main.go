// cmd/genhash prints a bcrypt hash for manual user provisioning.
// Usage: go run ./cmd/genhash <password> [cost]
package main

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: genhash <password> [cost]")
		os.Exit(2)
	}
	cost := 12
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			fmt.Fprintf(os.Stderr, "cost must be between %d and %d\n", bcrypt.MinCost, bcrypt.MaxCost)
			os.Exit(2)
		}
		cost = n
	}
	h, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), cost)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(h))
}
