package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/refbot/internal/storage"
)

func TestRenderProfileEscapesName(t *testing.T) {
	u := storage.User{ID: 5, DisplayName: "<b>evil</b>", Balance: 40}
	text := renderProfile(u, 2, storage.Settings{VideoPrice: 100, PhotoPrice: 50},
		"https://t.me/refbot?start=5", "@support")

	if strings.Contains(text, "<b>evil</b>") {
		t.Fatal("display name must be HTML-escaped")
	}
	for _, part := range []string{"&lt;b&gt;evil&lt;/b&gt;", "40 ₽", "Referrals: 2", "start=5", "@support"} {
		if !strings.Contains(text, part) {
			t.Fatalf("profile missing %q:\n%s", part, text)
		}
	}
}

func TestRenderUserInfoReferrerLine(t *testing.T) {
	u := storage.User{ID: 1, DisplayName: "a", RegisteredAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	if !strings.Contains(renderUserInfo(u, 0, ""), "Invited by: none") {
		t.Fatal("zero referrer must render as none")
	}
	u.ReferrerID = 9
	text := renderUserInfo(u, 0, "hub")
	if !strings.Contains(text, "hub") || !strings.Contains(text, "9") {
		t.Fatalf("referrer name and id missing:\n%s", text)
	}
}

func TestRenderLeaderboards(t *testing.T) {
	byBalance := []storage.User{
		{ID: 1, DisplayName: "rich", Balance: 900},
		{ID: 2, DisplayName: "poor", Balance: 1},
	}
	byReferrals := []storage.ReferralRank{{UserID: 3, Count: 4}, {UserID: 8, Count: 1}}
	text := renderLeaderboards(byBalance, byReferrals, map[int64]string{3: "hub"})

	for _, part := range []string{"1. rich | 900 ₽", "2. poor | 1 ₽", "1. hub | 4", "2. id 8 | 1"} {
		if !strings.Contains(text, part) {
			t.Fatalf("leaderboards missing %q:\n%s", part, text)
		}
	}
	if strings.Contains(text, "—") {
		t.Fatalf("leaderboards must not use em-dash separators:\n%s", text)
	}
}

func TestRenderBroadcastSummary(t *testing.T) {
	text := renderBroadcastSummary(10, 7, 3)
	for _, part := range []string{"7 delivered", "3 failed", "10 total"} {
		if !strings.Contains(text, part) {
			t.Fatalf("summary missing %q: %s", part, text)
		}
	}
}
