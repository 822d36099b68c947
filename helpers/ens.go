package helpers

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ens "github.com/wealdtech/go-ens/v3"
)

// ENSResult is the outcome of a reverse ENS lookup
type ENSResult struct {
	Address common.Address
	Name    string
	Error   error
}

// LookupENS resolves the primary ENS name of addr. Chains without an ENS
// registry simply yield an error.
func LookupENS(backend bind.ContractBackend, addr common.Address) ENSResult {
	if backend == nil {
		return ENSResult{Address: addr, Error: errors.New("no RPC client")}
	}
	name, err := ens.ReverseResolve(backend, addr)
	if err != nil {
		return ENSResult{Address: addr, Error: err}
	}
	return ENSResult{Address: addr, Name: strings.TrimSpace(name)}
}
