// Package order builds opaque order references and payment form links.
package order

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randIn returns a uniform value in [lo, hi].
func randIn(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

func randLetter() byte {
	return letters[rand.IntN(len(letters))]
}

// Reference produces a fresh order token: two digits in [44,77], two ASCII
// letters, three digits in [371,984], one letter, two digits in [11,24].
// Tokens are correlation handles shown to the payer and the operator, not
// authentication secrets, so math/rand is sufficient.
func Reference() string {
	return fmt.Sprintf("%d%c%c%d%c%d",
		randIn(44, 77),
		randLetter(),
		randLetter(),
		randIn(371, 984),
		randLetter(),
		randIn(11, 24))
}

// Provider form codes: one for wallet accounts (all-digit identifiers), one
// for card numbers and everything else.
const (
	providerWallet = 99
	providerCard   = 99999
)

// providerCode picks the payment form for the configured account.
func providerCode(account string) int {
	if account == "" {
		return providerCard
	}
	for _, r := range account {
		if r < '0' || r > '9' {
			return providerCard
		}
	}
	return providerWallet
}

// PaymentURL renders a prefilled payment form link locking the amount, the
// comment (the order reference) and the destination account.
func PaymentURL(account string, amount int64, comment string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "https://qiwi.com/payment/form/%d", providerCode(account))
	fmt.Fprintf(&b, "?extra%%5B%%27account%%27%%5D=%s", url.QueryEscape(account))
	fmt.Fprintf(&b, "&amountInteger=%d&amountFraction=0", amount)
	fmt.Fprintf(&b, "&extra%%5B%%27comment%%27%%5D=%s", url.QueryEscape(comment))
	b.WriteString("&currency=643&blocked%5B0%5D=sum&blocked%5B1%5D=comment&blocked%5B2%5D=account")
	return b.String()
}
