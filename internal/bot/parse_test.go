package bot

import (
	"errors"
	"testing"
)

func TestParseStartPayload(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"12345", 12345},
		{" 77 ", 77},
		{"-5", 0},
		{"0", 0},
		{"abc", 0},
		{"12x", 0},
	}
	for _, tc := range cases {
		if got := parseStartPayload(tc.in); got != tc.want {
			t.Errorf("parseStartPayload(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseTopUpAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{"100", 100, nil},
		{"10", 10, nil},
		{"500", 500, nil},
		{" 42 ", 42, nil},
		{"9", 0, errAmountRange},
		{"501", 0, errAmountRange},
		{"-50", 0, errAmountRange},
		{"abc", 0, errAmountInvalid},
		{"12.5", 0, errAmountInvalid},
		{"", 0, errAmountInvalid},
	}
	for _, tc := range cases {
		got, err := parseTopUpAmount(tc.in, 10, 500)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("parseTopUpAmount(%q) err = %v, want %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("parseTopUpAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParsePayArgs(t *testing.T) {
	got, err := parsePayArgs("123 50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.All || got.UserID != 123 || got.Amount != 50 {
		t.Fatalf("unexpected target: %+v", got)
	}

	got, err = parsePayArgs("all -20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.All || got.Amount != -20 {
		t.Fatalf("unexpected target: %+v", got)
	}

	for _, in := range []string{"", "123", "123 50 7", "x 50", "123 x", "-4 50"} {
		if _, err := parsePayArgs(in); err == nil {
			t.Errorf("parsePayArgs(%q): expected error", in)
		}
	}
}

func TestValidateSettingValue(t *testing.T) {
	if err := validateSettingValue("qiwi", "79990001122"); err != nil {
		t.Errorf("account: %v", err)
	}
	if err := validateSettingValue("qiwi", "card-like-value"); err != nil {
		t.Errorf("account accepts any non-empty string: %v", err)
	}
	if err := validateSettingValue("video", "150"); err != nil {
		t.Errorf("video: %v", err)
	}
	for name, value := range map[string]string{
		"video": "abc",
		"photo": "-5",
		"bonus": "1.5",
		"stbal": "",
		"qiwi":  "",
	} {
		if err := validateSettingValue(name, value); err == nil {
			t.Errorf("validateSettingValue(%s, %q): expected error", name, value)
		}
	}
}

func TestParseRecordID(t *testing.T) {
	if id, err := parseRecordID(" 9 "); err != nil || id != 9 {
		t.Fatalf("parseRecordID: %d, %v", id, err)
	}
	for _, in := range []string{"", "x", "0", "-1"} {
		if _, err := parseRecordID(in); err == nil {
			t.Errorf("parseRecordID(%q): expected error", in)
		}
	}
}
