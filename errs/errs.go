// Package errs defines the error taxonomy shared by the gateway, the wallet
// session and the transaction submitter, and the text shown to the user for each.
package errs

import (
	"errors"
	"strings"
)

var (
	// ErrNoProvider is returned when no wallet is available (no keystore configured).
	ErrNoProvider = errors.New("no wallet provider")

	// ErrUserRejected is returned when the user declines a wallet prompt.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrUnsupportedNetwork is returned when the wallet is on a chain other than the supported one.
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrNetwork is returned when an RPC call fails or times out.
	ErrNetwork = errors.New("network error")

	// ErrSubmissionRejected is returned when the signer declines to sign a transaction.
	ErrSubmissionRejected = errors.New("submission rejected by signer")

	// ErrTransactionReverted is returned when a submitted transaction is mined but fails.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrNotConnected is returned when an action needs a connected wallet session.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrEmptyMessage is returned when a wave is submitted without a message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInvalidMessage is returned when a wave message is not valid UTF-8.
	ErrInvalidMessage = errors.New("message is not valid UTF-8")

	// ErrMessageTooLong is returned when a wave message exceeds the configured limit.
	ErrMessageTooLong = errors.New("message is too long")

	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("a wave is already pending")
)

// Message returns the text shown to the user for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoProvider):
		return "No wallet detected. Point --keystore (or WAVE_KEYSTORE) at a go-ethereum keystore directory."
	case errors.Is(err, ErrUnsupportedNetwork):
		return "You're connected to an unsupported network."
	case errors.Is(err, ErrSubmissionRejected):
		return "The wave was not signed, nothing was sent."
	case errors.Is(err, ErrUserRejected):
		return "Please authorize this app to access your Ethereum account."
	case errors.Is(err, ErrTransactionReverted):
		return "The wave transaction was reverted on chain."
	case errors.Is(err, ErrNotConnected):
		return "Connect your wallet before waving."
	case errors.Is(err, ErrEmptyMessage):
		return "Write a message before waving."
	case errors.Is(err, ErrInvalidMessage):
		return "That message contains invalid characters."
	case errors.Is(err, ErrMessageTooLong):
		return "That message is too long."
	case errors.Is(err, ErrBusy):
		return "Hold on, your previous wave is still pending."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the Ethereum node: " + cause(err)
	default:
		return "An unknown error occurred. Check the log panel for more details."
	}
}

// cause strips the taxonomy prefix so the modal shows the underlying failure.
func cause(err error) string {
	s := err.Error()
	if i := strings.LastIndex(s, ErrNetwork.Error()+": "); i >= 0 {
		return s[i+len(ErrNetwork.Error())+2:]
	}
	return s
}
