package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI of the platform collection contract. Only the functions this service
// calls are declared; the deployed contract carries more.
const collectionABIJSON = `[
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"mintingEnabled","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"name":"paused","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"setBaseURI","type":"function","stateMutability":"nonpayable","inputs":[{"name":"baseURI","type":"string"}],"outputs":[]},
	{"name":"mintBatch","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"quantity","type":"uint256"}],"outputs":[]},
	{"name":"batchTransferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenIds","type":"uint256[]"}],"outputs":[]},
	{"name":"lockTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenIds","type":"uint256[]"},{"name":"isStaking","type":"bool"}],"outputs":[]},
	{"name":"unlockTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenIds","type":"uint256[]"},{"name":"isUnstaking","type":"bool"}],"outputs":[]}
]`

var collectionABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(collectionABIJSON))
	if err != nil {
		panic(err)
	}

	collectionABI = parsed
}
