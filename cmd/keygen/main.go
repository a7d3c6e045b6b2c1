// keygen builds DNA key material offline: it derives the segment chain,
// key id, and recovery mnemonic without touching a daemon. Useful for
// inspecting what an enrollment would produce, and for recovery drills.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"

	"helix-auth/go-backend/internal/dna"
	"helix-auth/go-backend/pkg/models"

	"github.com/mr-tron/base58/base58"
)

func main() {
	subjectID := flag.String("subject", "", "subject identifier (required)")
	level := flag.String("level", "standard", "security level: standard | enhanced | maximum | government")
	mnemonicIn := flag.String("recover", "", "recovery mnemonic; prints the recovered private key and exits")
	flag.Parse()

	if *mnemonicIn != "" {
		priv, err := dna.RecoverPrivateKey(*mnemonicIn)
		if err != nil {
			log.Fatalf("recover: %v", err)
		}
		fmt.Printf("private_key=%s\n", base58.Encode(priv))
		fmt.Printf("public_key=%s\n", base58.Encode(priv.Public().(ed25519.PublicKey)))
		return
	}

	if *subjectID == "" {
		flag.Usage()
		os.Exit(2)
	}

	chain, err := dna.BuildChain(*subjectID, models.SecurityLevel(*level), rand.Reader)
	if err != nil {
		log.Fatalf("build chain: %v", err)
	}
	keyID, err := dna.KeyID(chain.PublicKey, models.SecurityLevel(*level))
	if err != nil {
		log.Fatalf("derive key id: %v", err)
	}
	mnemonic, err := dna.RecoveryMnemonic(chain.PrivateKey)
	if err != nil {
		log.Fatalf("derive mnemonic: %v", err)
	}

	fmt.Printf("key_id=%s\n", keyID)
	fmt.Printf("segments=%d\n", len(chain.Segments))
	fmt.Printf("public_key=%s\n", base58.Encode(chain.PublicKey))
	fmt.Printf("private_key=%s\n", base58.Encode(chain.PrivateKey))
	fmt.Printf("recovery_mnemonic=%s\n", mnemonic)
}
