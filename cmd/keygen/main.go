package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/regsense/assistant-gateway/internal/auth"
)

func main() {
	name := flag.String("name", "", "human-friendly key name (required)")
	env := flag.String("env", "prod", "environment prefix")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -name is required")
		os.Exit(1)
	}

	rawKey, err := auth.GenerateKey(*env)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}

	keyHash := auth.HashKey(rawKey)
	keyPrefix := auth.KeyPrefix(rawKey)

	fmt.Println("=== Assistant Gateway API Key ===")
	fmt.Println()
	fmt.Printf("  Name:       %s\n", *name)
	fmt.Printf("  Key Prefix: %s\n", keyPrefix)
	fmt.Println()
	fmt.Println("  API Key (save this - it will NOT be shown again):")
	fmt.Printf("  %s\n", rawKey)
	fmt.Println()
	fmt.Println("  Add to configs/gateway.yaml under auth.keys:")
	fmt.Println()
	fmt.Printf("    - name: %s\n", *name)
	fmt.Printf("      hash: %s\n", keyHash)
	fmt.Println()
	fmt.Println("=================================")
}
