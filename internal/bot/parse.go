package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/refbot/internal/storage"
)

var (
	errAmountInvalid = errors.New("amount is not a whole number")
	errAmountRange   = errors.New("amount is out of range")
)

// parseStartPayload extracts the referrer identity from a /start deep-link
// payload. Anything that is not a positive integer means "no referrer".
func parseStartPayload(payload string) int64 {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// parseTopUpAmount validates user input for the top-up flow.
func parseTopUpAmount(text string, min, max int64) (int64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, errAmountInvalid
	}
	if amount < min || amount > max {
		return 0, errAmountRange
	}
	return amount, nil
}

// payTarget is the parsed form of a /pay argument pair.
type payTarget struct {
	All    bool
	UserID int64
	Amount int64
}

// parsePayArgs parses "<id|all> <amount>"; amount may be negative.
func parsePayArgs(payload string) (payTarget, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return payTarget{}, errors.New("expected: /pay <id|all> <amount>")
	}
	amount, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return payTarget{}, fmt.Errorf("amount %q is not a whole number", fields[1])
	}
	if strings.EqualFold(fields[0], "all") {
		return payTarget{All: true, Amount: amount}, nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return payTarget{}, fmt.Errorf("target %q is neither an id nor \"all\"", fields[0])
	}
	return payTarget{UserID: id, Amount: amount}, nil
}

// validateSettingValue checks a /qiwi-family argument before it reaches the
// store: numeric settings must be non-negative integers, the payment account
// must be non-empty.
func validateSettingValue(name, value string) error {
	if value == "" {
		return errors.New("value is required")
	}
	if name == storage.SettingPaymentAccount {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%q is not a whole number", value)
	}
	if n < 0 {
		return errors.New("value must not be negative")
	}
	return nil
}

// parseRecordID parses a positive record id argument (/info, /del).
func parseRecordID(payload string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", payload)
	}
	return id, nil
}
