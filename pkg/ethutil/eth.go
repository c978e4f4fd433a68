package ethutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func GeneratePrivateKey(secret, nonce []byte) (*ecdsa.PrivateKey, error) {
	seed := sha256.Sum256(append(secret, nonce...))
	randomSeed := bytes.Repeat(seed[:], 2)
	reader := bytes.NewReader(randomSeed)
	return ecdsa.GenerateKey(ethcrypto.S256(), reader)
}

func GeneratePublicKey(secret, nonce []byte) (common.Address, error) {
	walletPrivateKey, err := GeneratePrivateKey(secret, nonce)
	if err != nil {
		return common.Address{}, err
	}

	return ethcrypto.PubkeyToAddress(walletPrivateKey.PublicKey), nil
}

// PersonalSignHash hashes a message the way eth_personalSign does, with the
// EIP-191 prefix applied.
func PersonalSignHash(msg []byte) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return ethcrypto.Keccak256Hash([]byte(prefixed))
}

// RecoverPersonalSign returns the address that personal-signed msg. The 65th
// signature byte accepts both the 0/1 and 27/28 conventions.
func RecoverPersonalSign(msg, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(PersonalSignHash(msg).Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}

	return ethcrypto.PubkeyToAddress(*pubKey), nil
}
