package rpc

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mdp/qrterminal/v3"
)

// Explorer builds block explorer links.
type Explorer struct {
	BaseURL string
}

// TxURL returns the explorer page for a transaction.
func (e Explorer) TxURL(hash common.Hash) string {
	return strings.TrimRight(e.BaseURL, "/") + "/tx/" + hash.Hex()
}

// AddressURL returns the explorer page for an address.
func (e Explorer) AddressURL(addr common.Address) string {
	return strings.TrimRight(e.BaseURL, "/") + "/address/" + addr.Hex()
}

// GenerateQRCode renders text as a half-block terminal QR code.
func GenerateQRCode(text string) string {
	if text == "" {
		return ""
	}
	var sb strings.Builder
	qrterminal.GenerateHalfBlock(text, qrterminal.L, &sb)
	return sb.String()
}
