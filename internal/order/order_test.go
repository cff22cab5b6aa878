package order

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var refShape = regexp.MustCompile(`^(\d{2})([A-Za-z]{2})(\d{3})([A-Za-z])(\d{2})$`)

func TestReferenceShape(t *testing.T) {
	for i := 0; i < 500; i++ {
		ref := Reference()
		m := refShape.FindStringSubmatch(ref)
		if m == nil {
			t.Fatalf("reference %q does not match the expected shape", ref)
		}
		head, _ := strconv.Atoi(m[1])
		if head < 44 || head > 77 {
			t.Fatalf("reference %q: leading group %d out of [44,77]", ref, head)
		}
		mid, _ := strconv.Atoi(m[3])
		if mid < 371 || mid > 984 {
			t.Fatalf("reference %q: middle group %d out of [371,984]", ref, mid)
		}
		tail, _ := strconv.Atoi(m[5])
		if tail < 11 || tail > 24 {
			t.Fatalf("reference %q: trailing group %d out of [11,24]", ref, tail)
		}
	}
}

func TestReferenceVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[Reference()] = true
	}
	if len(seen) < 2 {
		t.Fatal("references are not random")
	}
}

func TestPaymentURLWalletAccount(t *testing.T) {
	u := PaymentURL("79990001122", 250, "51ab400c12")
	if !strings.HasPrefix(u, "https://qiwi.com/payment/form/99?") {
		t.Fatalf("wallet account must use form 99: %s", u)
	}
	for _, part := range []string{
		"amountInteger=250",
		"amountFraction=0",
		"79990001122",
		"51ab400c12",
		"currency=643",
		"blocked%5B0%5D=sum",
	} {
		if !strings.Contains(u, part) {
			t.Fatalf("url missing %q: %s", part, u)
		}
	}
}

func TestPaymentURLCardAccount(t *testing.T) {
	u := PaymentURL("4111 1111 1111 1111", 10, "x")
	if !strings.HasPrefix(u, "https://qiwi.com/payment/form/99999?") {
		t.Fatalf("non-digit account must use form 99999: %s", u)
	}
}
