package events

import (
	"math/big"
	"strconv"

	"kavochain/core/types"
	"kavochain/crypto"
)

const (
	// TypeTransfer is emitted for every completed transfer, taxed or not.
	TypeTransfer = "token.transfer"
	// TypeTaxCollected captures the tax portion routed to the treasury.
	TypeTaxCollected = "token.taxCollected"
	// TypeMint records a supply increase performed by the mint authority.
	TypeMint = "token.mint"
	// TypePauseChanged is emitted whenever the global pause flag toggles.
	TypePauseChanged = "token.pauseChanged"
)

// Transfer captures the settled amounts of a transfer after tax routing.
type Transfer struct {
	Sender    [20]byte
	Recipient [20]byte
	Amount    *big.Int
	Net       *big.Int
	Tax       *big.Int
	Taxed     bool
	Direction string
	Timestamp int64
}

// EventType satisfies the Event interface.
func (Transfer) EventType() string { return TypeTransfer }

// Event converts the structured payload into a broadcastable event.
func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   crypto.MustNewAddress(crypto.KavoPrefix, e.Sender[:]).String(),
		"to":     crypto.MustNewAddress(crypto.KavoPrefix, e.Recipient[:]).String(),
		"amount": formatAmount(e.Amount),
		"net":    formatAmount(e.Net),
		"tax":    formatAmount(e.Tax),
		"taxed":  strconv.FormatBool(e.Taxed),
	}
	if e.Direction != "" {
		attrs["direction"] = e.Direction
	}
	if e.Timestamp != 0 {
		attrs["timestamp"] = intToString(e.Timestamp)
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

// TaxCollected records tax routed to the treasury for a single transfer.
type TaxCollected struct {
	Payer     [20]byte
	Amount    *big.Int
	RateBps   uint32
	Direction string
}

// EventType satisfies the Event interface.
func (TaxCollected) EventType() string { return TypeTaxCollected }

// Event converts the structured payload into a broadcastable event.
func (e TaxCollected) Event() *types.Event {
	return &types.Event{
		Type: TypeTaxCollected,
		Attributes: map[string]string{
			"payer":     crypto.MustNewAddress(crypto.KavoPrefix, e.Payer[:]).String(),
			"amount":    formatAmount(e.Amount),
			"rateBps":   strconv.FormatUint(uint64(e.RateBps), 10),
			"direction": e.Direction,
		},
	}
}

// Mint records tokens credited by the mint authority.
type Mint struct {
	Recipient [20]byte
	Amount    *big.Int
}

// EventType satisfies the Event interface.
func (Mint) EventType() string { return TypeMint }

// Event converts the structured payload into a broadcastable event.
func (e Mint) Event() *types.Event {
	return &types.Event{
		Type: TypeMint,
		Attributes: map[string]string{
			"to":     crypto.MustNewAddress(crypto.KavoPrefix, e.Recipient[:]).String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// PauseChanged signals the global pause flag flipping.
type PauseChanged struct {
	Paused bool
}

// EventType satisfies the Event interface.
func (PauseChanged) EventType() string { return TypePauseChanged }

// Event converts the structured payload into a broadcastable event.
func (e PauseChanged) Event() *types.Event {
	return &types.Event{
		Type:       TypePauseChanged,
		Attributes: map[string]string{"paused": strconv.FormatBool(e.Paused)},
	}
}
