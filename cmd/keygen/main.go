// Command keygen creates a treasury keypair for TREASURY_SECRET_KEY.
package main

import (
	"encoding/json"
	"flag"
	"fmt"

	"gold_mining/internal/logger"

	"github.com/gagliardetto/solana-go"
)

func main() {
	asJSON := flag.Bool("json", false, "print the secret as a solana-keygen style byte array")
	flag.Parse()

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		logger.Fatal("failed to generate key", "error", err)
	}

	fmt.Printf("TREASURY_PUBLIC_KEY=%s\n", key.PublicKey())
	if *asJSON {
		raw, err := json.Marshal(bytesToInts(key))
		if err != nil {
			logger.Fatal("failed to encode key", "error", err)
		}
		fmt.Printf("TREASURY_SECRET_KEY=%s\n", raw)
		return
	}
	fmt.Printf("TREASURY_SECRET_KEY=%s\n", key.String())
}

// json.Marshal encodes []byte as base64, solana-keygen writes numbers.
func bytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
