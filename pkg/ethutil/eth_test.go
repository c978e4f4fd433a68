package ethutil

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func Test_RecoverPersonalSign(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte("starglow-transfer:0xaaaa:0xbbbb:7")
	signature, err := ethcrypto.Sign(PersonalSignHash(msg).Bytes(), key)
	require.NoError(t, err)

	recovered, err := RecoverPersonalSign(msg, signature)
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey), recovered)

	// The 27/28 recovery id convention is accepted too.
	signature[64] += 27
	recovered, err = RecoverPersonalSign(msg, signature)
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey), recovered)

	// A different message does not recover the signer.
	signature[64] -= 27
	recovered, err = RecoverPersonalSign([]byte("another message"), signature)
	if err == nil {
		require.NotEqual(t, ethcrypto.PubkeyToAddress(key.PublicKey), recovered)
	}

	_, err = RecoverPersonalSign(msg, signature[:64])
	require.Error(t, err)
}

func Test_GeneratePublicKey_deterministic(t *testing.T) {
	addr1, err := GeneratePublicKey([]byte("secret"), []byte("nonce1"))
	require.NoError(t, err)

	addr2, err := GeneratePublicKey([]byte("secret"), []byte("nonce1"))
	require.NoError(t, err)
	require.Equal(t, addr1, addr2)

	addr3, err := GeneratePublicKey([]byte("secret"), []byte("nonce2"))
	require.NoError(t, err)
	require.NotEqual(t, addr1, addr3)
}
