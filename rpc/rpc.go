package rpc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client  *Client
	ChainID *big.Int
	Error   error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout and reads the
// chain id so a dead endpoint is reported here rather than on first use.
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		ChainID: chainID,
		Error:   nil,
	}
}

// AccountBalance holds the ETH balance of the connected account
type AccountBalance struct {
	Address    string
	Wei        *big.Int
	LoadedAt   time.Time
	ErrMessage string
}

// LoadAccountBalance fetches the ETH balance for an address
func LoadAccountBalance(client *Client, addr common.Address) AccountBalance {
	return LoadAccountBalanceWithTimeout(client, addr, 12*time.Second)
}

// LoadAccountBalanceWithTimeout fetches the balance with a custom timeout
func LoadAccountBalanceWithTimeout(client *Client, addr common.Address, timeout time.Duration) AccountBalance {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	b := AccountBalance{
		Address:  addr.Hex(),
		Wei:      big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if client == nil || client.Client == nil {
		b.ErrMessage = "No RPC client (set WAVE_RPC_URL or ALCHEMY_KEY)."
		return b
	}

	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		b.ErrMessage = "Failed to load ETH balance."
		return b
	}
	b.Wei = wei

	return b
}
