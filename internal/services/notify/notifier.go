package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
)

// Sender is the outbound side of the chat platform.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// UserDirectory resolves internal user ids back to chat identities.
type UserDirectory interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

type Config struct {
	ConfessionChannel int64
	MatchChannel      int64
	AdminChatID       int64
}

// Notifier turns engine events into telegram messages. Delivery is best
// effort: a failed send is logged and dropped, the state transition that
// caused it already committed.
type Notifier struct {
	sender Sender
	users  UserDirectory
	log    *zap.Logger
	cfg    Config
}

func New(sender Sender, users UserDirectory, log *zap.Logger, cfg Config) *Notifier {
	return &Notifier{
		sender: sender,
		users:  users,
		log:    log,
		cfg:    cfg,
	}
}

func (n *Notifier) MatchFormed(ctx context.Context, userA, userB int64) {
	if n == nil || n.sender == nil {
		return
	}

	// The channel post stays anonymous; only the participants learn who
	// they matched with.
	if n.cfg.MatchChannel != 0 {
		if err := n.sender.SendText(ctx, n.cfg.MatchChannel, "Two students just matched. Your turn: send /match to the bot."); err != nil {
			n.logWarn("announce match to channel", err)
		}
	}

	n.tellBoth(ctx, userA, userB, "It's a match! Use /matches to see who you connected with.")
}

func (n *Notifier) MatchEnded(ctx context.Context, userA, userB int64) {
	n.tellBoth(ctx, userA, userB, "One of your matches has ended. Use /match to find new people.")
}

func (n *Notifier) tellBoth(ctx context.Context, userA, userB int64, text string) {
	if n == nil || n.sender == nil || n.users == nil {
		return
	}

	for _, userID := range []int64{userA, userB} {
		user, err := n.users.GetByID(ctx, userID)
		if err != nil {
			n.logWarn("resolve match participant", err, zap.Int64("user_id", userID))
			continue
		}
		if err := n.sender.SendText(ctx, user.TelegramID, text); err != nil {
			n.logWarn("send match notification", err, zap.Int64("user_id", userID))
		}
	}
}

func (n *Notifier) ConfessionSubmitted(ctx context.Context, confession model.Confession) {
	if n == nil || n.sender == nil || n.cfg.AdminChatID == 0 {
		return
	}

	text := fmt.Sprintf("New confession #%d is waiting for review.", confession.ID)
	if err := n.sender.SendText(ctx, n.cfg.AdminChatID, text); err != nil {
		n.logWarn("notify admins about confession", err, zap.Int64("confession_id", confession.ID))
	}
}

func (n *Notifier) ConfessionApproved(ctx context.Context, confession model.Confession) {
	if n == nil || n.sender == nil {
		return
	}

	if n.cfg.ConfessionChannel != 0 {
		text := fmt.Sprintf("Confession #%d\n\n%s", confession.ID, confession.Content)
		if err := n.sender.SendText(ctx, n.cfg.ConfessionChannel, text); err != nil {
			n.logWarn("post confession to channel", err, zap.Int64("confession_id", confession.ID))
		}
	}

	n.tellAuthor(ctx, confession, "Your confession was approved and posted to the channel.")
}

func (n *Notifier) ConfessionRejected(ctx context.Context, confession model.Confession) {
	n.tellAuthor(ctx, confession, "Your confession was not approved.")
}

func (n *Notifier) tellAuthor(ctx context.Context, confession model.Confession, text string) {
	if n == nil || n.sender == nil || n.users == nil {
		return
	}

	author, err := n.users.GetByID(ctx, confession.AuthorID)
	if err != nil {
		n.logWarn("resolve confession author", err, zap.Int64("confession_id", confession.ID))
		return
	}
	if err := n.sender.SendText(ctx, author.TelegramID, text); err != nil {
		n.logWarn("send confession decision", err, zap.Int64("confession_id", confession.ID))
	}
}

func (n *Notifier) ReportFiled(ctx context.Context, report model.Report) {
	if n == nil || n.sender == nil || n.cfg.AdminChatID == 0 {
		return
	}

	text := fmt.Sprintf("Report #%d filed against user %d: %s", report.ID, report.TargetID, report.Reason)
	if err := n.sender.SendText(ctx, n.cfg.AdminChatID, text); err != nil {
		n.logWarn("notify admins about report", err, zap.Int64("report_id", report.ID))
	}
}

func (n *Notifier) UserAutoHidden(ctx context.Context, userID int64, reportCount int) {
	if n == nil || n.sender == nil || n.cfg.AdminChatID == 0 {
		return
	}

	text := fmt.Sprintf("User %d was hidden automatically after %d reports.", userID, reportCount)
	if err := n.sender.SendText(ctx, n.cfg.AdminChatID, text); err != nil {
		n.logWarn("notify admins about auto hide", err, zap.Int64("user_id", userID))
	}
}

func (n *Notifier) logWarn(msg string, err error, fields ...zap.Field) {
	if n.log == nil {
		return
	}
	n.log.Warn(msg, append(fields, zap.Error(err))...)
}
