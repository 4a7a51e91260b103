package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/speakingzone/examiner/internal/stats"
	"github.com/speakingzone/examiner/internal/transport"
)

// onlineWindow is how recent activity must be to count a user as online.
const onlineWindow = 5 * time.Minute

func (r *Router) isAdmin(uid int64) bool { return r.adminIDs[uid] }

// handleAdmin renders the overall usage report with a top-10 leaderboard.
func (r *Router) handleAdmin(ctx context.Context, uid int64) {
	if !r.isAdmin(uid) {
		r.send(ctx, uid, "⛔ Siz admin emassiz.", transport.KeyboardNone)
		return
	}

	var b strings.Builder
	b.WriteString("👑 ADMIN STATS\n\n")
	fmt.Fprintf(&b, "👥 Unique users: %d\n", r.stats.UniqueUsers())
	fmt.Fprintf(&b, "🟢 Online (5 min): %d\n\n", len(r.stats.Online(onlineWindow)))
	fmt.Fprintf(&b, "🗣 Speaking total: %d\n", r.stats.SectionTotal(stats.SectionExams))
	fmt.Fprintf(&b, "📚 Dictionary total: %d\n", r.stats.SectionTotal(stats.SectionDict))
	fmt.Fprintf(&b, "✍️ Writing total: %d\n", r.stats.SectionTotal(stats.SectionWritings))

	top := r.stats.TopUsers(10)
	if len(top) > 0 {
		b.WriteString("\n🏆 TOP 10 (eng aktiv):\n")
		for i, u := range top {
			fmt.Fprintf(&b, "%d) %s\n   🗣 %d | 📚 %d | ✍️ %d\n",
				i+1, r.bot.UserLabel(u.UserID), u.Exams, u.Dicts, u.Writings)
		}
	}

	r.send(ctx, uid, b.String(), transport.KeyboardNone)
}

// handleAll reports user activity counts; an optional argument narrows the
// window (/all today, /all last7days, /all month).
func (r *Router) handleAll(ctx context.Context, uid int64, text string) {
	if !r.isAdmin(uid) {
		r.send(ctx, uid, "⛔ Siz admin emassiz.", transport.KeyboardNone)
		return
	}

	var arg string
	if parts := strings.Fields(text); len(parts) > 1 {
		arg = strings.ToLower(parts[1])
	}

	today := r.stats.ActiveUsers(1)
	last7 := r.stats.ActiveUsers(7)
	month := r.stats.ActiveUsers(30)

	switch arg {
	case "today", "bugun":
		r.send(ctx, uid, fmt.Sprintf("📅 Bugun aktiv bo‘lganlar: %d", today), transport.KeyboardNone)
		return
	case "last7days", "7days", "week", "hafta":
		r.send(ctx, uid, fmt.Sprintf("🗓 Oxirgi 7 kun aktiv bo‘lganlar: %d", last7), transport.KeyboardNone)
		return
	case "month", "30days", "oy":
		r.send(ctx, uid, fmt.Sprintf("📆 Oxirgi 30 kun aktiv bo‘lganlar: %d", month), transport.KeyboardNone)
		return
	}

	r.send(ctx, uid,
		"📊 FOYDALANUVCHI STATISTIKASI\n\n"+
			fmt.Sprintf("👥 Jami (hammasi): %d\n", r.stats.TotalUsers())+
			fmt.Sprintf("📅 Bugun aktiv: %d\n", today)+
			fmt.Sprintf("🗓 Oxirgi 7 kun aktiv: %d\n", last7)+
			fmt.Sprintf("📆 Oxirgi 30 kun aktiv: %d\n\n", month)+
			"ℹ️ Buyruqlar:\n/all today\n/all last7days\n/all month",
		transport.KeyboardNone)
}

// handleSub reports how many users have passed the subscription gate.
func (r *Router) handleSub(ctx context.Context, uid int64) {
	if !r.isAdmin(uid) {
		r.send(ctx, uid, "⛔ Siz admin emassiz.", transport.KeyboardNone)
		return
	}

	r.send(ctx, uid,
		"📌 OBUNA STATISTIKASI (BOT orqali)\n\n"+
			fmt.Sprintf("✅ Jami obuna bo‘lib o‘tganlar: %d\n", r.stats.TotalSubPassed())+
			fmt.Sprintf("📅 Bugun: %d\n", r.stats.SubPassed(1))+
			fmt.Sprintf("🗓 Oxirgi 7 kun: %d\n", r.stats.SubPassed(7))+
			fmt.Sprintf("📆 Oxirgi 30 kun: %d\n\n", r.stats.SubPassed(30))+
			"ℹ️ Bu botdan o‘tgan (subscribe check’dan o‘tgan) userlar soni.",
		transport.KeyboardNone)
}

// handleOnline lists users active within the online window.
func (r *Router) handleOnline(ctx context.Context, uid int64) {
	if !r.isAdmin(uid) {
		r.send(ctx, uid, "⛔ Admin emas", transport.KeyboardNone)
		return
	}

	on := r.stats.Online(onlineWindow)
	if len(on) == 0 {
		r.send(ctx, uid, "🟢 Online user yo‘q", transport.KeyboardNone)
		return
	}

	lines := make([]string, 0, len(on)+1)
	lines = append(lines, "🟢 ONLINE:\n")
	for _, id := range on {
		lines = append(lines, "👤 "+r.bot.UserLabel(id))
	}
	r.send(ctx, uid, strings.Join(lines, "\n"), transport.KeyboardNone)
}
