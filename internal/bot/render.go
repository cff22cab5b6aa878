package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/m3rciful/refbot/core/telegram/keyboard"
	"github.com/m3rciful/refbot/internal/storage"
)

var (
	replyMenu = keyboard.ReplyButtons([]string{btnProfile}, []string{btnTopUp})
	replyBack = keyboard.ReplyButtons([]string{btnBack})
)

func renderProfile(u storage.User, referrals int, s storage.Settings, inviteLink, supportLink string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>\n", html.EscapeString(u.DisplayName))
	fmt.Fprintf(&b, "🆔 ID: <code>%d</code>\n", u.ID)
	fmt.Fprintf(&b, "📅 With us since %s\n", u.RegisteredAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "💰 Balance: <b>%d ₽</b>\n", u.Balance)
	fmt.Fprintf(&b, "👥 Referrals: %d (+%d ₽ each)\n", referrals, s.ReferralBonus)
	if inviteLink != "" {
		fmt.Fprintf(&b, "\n🔗 Your invite link:\n%s\n", inviteLink)
	}
	fmt.Fprintf(&b, "\n📹 Video: %d ₽ • 📷 Photo: %d ₽", s.VideoPrice, s.PhotoPrice)
	if supportLink != "" {
		fmt.Fprintf(&b, "\n💬 Support: %s", supportLink)
	}
	return b.String()
}

func renderTopUpPrompt(min, max int64) string {
	return fmt.Sprintf("Enter a top-up amount from %d to %d ₽.", min, max)
}

func renderOrder(ref string, amount int64, supportLink string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Order <code>%s</code> for <b>%d ₽</b>.\n", html.EscapeString(ref), amount)
	b.WriteString("Pay with the button below; keep the comment unchanged.")
	if supportLink != "" {
		fmt.Fprintf(&b, "\nAfter payment, send the receipt to %s.", supportLink)
	}
	return b.String()
}

func renderDashboard(total, week, day, files int, s storage.Settings) string {
	var b strings.Builder
	b.WriteString("🛠 <b>Dashboard</b>\n")
	fmt.Fprintf(&b, "👥 Users: %d (7d: +%d, 24h: +%d)\n", total, week, day)
	fmt.Fprintf(&b, "🗂 Media records: %d\n\n", files)
	fmt.Fprintf(&b, "💳 Account: <code>%s</code>\n", html.EscapeString(s.PaymentAccount))
	fmt.Fprintf(&b, "📹 Video: %d ₽ • 📷 Photo: %d ₽\n", s.VideoPrice, s.PhotoPrice)
	fmt.Fprintf(&b, "🎁 Start: %d ₽ • Bonus: %d ₽", s.InitialBalance, s.ReferralBonus)
	return b.String()
}

func renderAdminHelp() string {
	return strings.Join([]string{
		"🛠 <b>Admin commands</b>",
		"/admin - dashboard",
		"/qiwi <account> - payment account",
		"/video <n> - video price",
		"/photo <n> - photo price",
		"/stbal <n> - starting balance",
		"/bonus <n> - referral bonus",
		"/top - leaderboards",
		"/info <id> - user record",
		"/pay <id|all> <n> - adjust balance (n may be negative)",
		"/dump [photo|video] - list stored media",
		"/del <id> - delete a media record",
	}, "\n")
}

func renderUserInfo(u storage.User, referrals int, referrerName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b> (<code>%d</code>)\n", html.EscapeString(u.DisplayName), u.ID)
	fmt.Fprintf(&b, "💰 Balance: %d ₽\n", u.Balance)
	fmt.Fprintf(&b, "👥 Referrals: %d\n", referrals)
	switch {
	case u.ReferrerID == 0:
		b.WriteString("🔗 Invited by: none\n")
	case referrerName != "":
		fmt.Fprintf(&b, "🔗 Invited by: %s (<code>%d</code>)\n", html.EscapeString(referrerName), u.ReferrerID)
	default:
		fmt.Fprintf(&b, "🔗 Invited by: <code>%d</code>\n", u.ReferrerID)
	}
	fmt.Fprintf(&b, "📅 Registered: %s", u.RegisteredAt.Format("2006-01-02 15:04"))
	return b.String()
}

func renderLeaderboards(byBalance []storage.User, byReferrals []storage.ReferralRank, names map[int64]string) string {
	var b strings.Builder
	b.WriteString("💰 <b>Top balances</b>\n")
	if len(byBalance) == 0 {
		b.WriteString("-\n")
	}
	for i, u := range byBalance {
		fmt.Fprintf(&b, "%d. %s | %d ₽\n", i+1, html.EscapeString(u.DisplayName), u.Balance)
	}
	b.WriteString("\n👥 <b>Top referrers</b>\n")
	if len(byReferrals) == 0 {
		b.WriteString("-")
	}
	for i, r := range byReferrals {
		name := names[r.UserID]
		if name == "" {
			name = fmt.Sprintf("id %d", r.UserID)
		}
		fmt.Fprintf(&b, "%d. %s | %d\n", i+1, html.EscapeString(name), r.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBroadcastPreview(recipients int, kind string) string {
	return fmt.Sprintf("📣 Broadcast this %s to %d users?", kind, recipients)
}

func renderBroadcastSummary(attempted, succeeded, failed int) string {
	return fmt.Sprintf("📣 Broadcast finished: %d delivered, %d failed, %d total.",
		succeeded, failed, attempted)
}
