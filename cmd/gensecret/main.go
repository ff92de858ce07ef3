package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nkiryanov/authclient/internal/repository/sealed"
)

// Print fresh SECRET_KEY for sealed token storage
func main() {
	b := make([]byte, sealed.KeySize)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
