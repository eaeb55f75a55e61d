package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

type sentMessage struct {
	chatID int64
	text   string
}

type senderStub struct {
	sent []sentMessage
	err  error
}

func (s *senderStub) SendText(_ context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type directoryStub struct {
	users map[int64]model.User
}

func (s *directoryStub) GetByID(_ context.Context, userID int64) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func TestMatchFormedNotifiesBothParticipants(t *testing.T) {
	sender := &senderStub{}
	users := &directoryStub{users: map[int64]model.User{
		1: {ID: 1, TelegramID: 100},
		2: {ID: 2, TelegramID: 200},
	}}
	n := New(sender, users, nil, Config{})

	n.MatchFormed(context.Background(), 1, 2)

	if len(sender.sent) != 2 {
		t.Fatalf("expected two messages, got %d", len(sender.sent))
	}
	if sender.sent[0].chatID != 100 || sender.sent[1].chatID != 200 {
		t.Fatalf("messages went to wrong chats: %+v", sender.sent)
	}
}

func TestMatchFormedSkipsUnresolvableParticipant(t *testing.T) {
	sender := &senderStub{}
	users := &directoryStub{users: map[int64]model.User{
		2: {ID: 2, TelegramID: 200},
	}}
	n := New(sender, users, nil, Config{})

	n.MatchFormed(context.Background(), 1, 2)

	if len(sender.sent) != 1 || sender.sent[0].chatID != 200 {
		t.Fatalf("expected delivery only to the resolvable user: %+v", sender.sent)
	}
}

func TestMatchFormedAnnouncesToChannel(t *testing.T) {
	sender := &senderStub{}
	users := &directoryStub{users: map[int64]model.User{
		1: {ID: 1, TelegramID: 100},
		2: {ID: 2, TelegramID: 200},
	}}
	n := New(sender, users, nil, Config{MatchChannel: -100777})

	n.MatchFormed(context.Background(), 1, 2)

	if len(sender.sent) != 3 {
		t.Fatalf("expected channel post plus two DMs, got %d", len(sender.sent))
	}
	if sender.sent[0].chatID != -100777 {
		t.Fatalf("announcement went to %d", sender.sent[0].chatID)
	}
	if strings.Contains(sender.sent[0].text, "100") || strings.Contains(sender.sent[0].text, "200") {
		t.Fatalf("announcement must not identify participants: %q", sender.sent[0].text)
	}
}

func TestConfessionApprovedPostsToChannelAndAuthor(t *testing.T) {
	sender := &senderStub{}
	users := &directoryStub{users: map[int64]model.User{
		7: {ID: 7, TelegramID: 700},
	}}
	n := New(sender, users, nil, Config{ConfessionChannel: -100123})

	n.ConfessionApproved(context.Background(), model.Confession{ID: 42, AuthorID: 7, Content: "I love the library"})

	if len(sender.sent) != 2 {
		t.Fatalf("expected channel post plus author DM, got %d", len(sender.sent))
	}
	if sender.sent[0].chatID != -100123 {
		t.Fatalf("channel post went to %d", sender.sent[0].chatID)
	}
	if !strings.Contains(sender.sent[0].text, "I love the library") {
		t.Fatalf("channel post misses content: %q", sender.sent[0].text)
	}
	if sender.sent[1].chatID != 700 {
		t.Fatalf("author DM went to %d", sender.sent[1].chatID)
	}
}

func TestConfessionApprovedWithoutChannelOnlyTellsAuthor(t *testing.T) {
	sender := &senderStub{}
	users := &directoryStub{users: map[int64]model.User{
		7: {ID: 7, TelegramID: 700},
	}}
	n := New(sender, users, nil, Config{})

	n.ConfessionApproved(context.Background(), model.Confession{ID: 42, AuthorID: 7, Content: "hi"})

	if len(sender.sent) != 1 || sender.sent[0].chatID != 700 {
		t.Fatalf("expected only the author DM: %+v", sender.sent)
	}
}

func TestAdminNotificationsRequireAdminChat(t *testing.T) {
	sender := &senderStub{}
	n := New(sender, &directoryStub{}, nil, Config{})

	n.ConfessionSubmitted(context.Background(), model.Confession{ID: 1, AuthorID: 7})
	n.ReportFiled(context.Background(), model.Report{ID: 1, TargetID: 2, Reason: "spam"})
	n.UserAutoHidden(context.Background(), 2, 3)

	if len(sender.sent) != 0 {
		t.Fatalf("no admin chat configured, yet messages were sent: %+v", sender.sent)
	}

	n = New(sender, &directoryStub{}, nil, Config{AdminChatID: -555})
	n.ReportFiled(context.Background(), model.Report{ID: 1, TargetID: 2, Reason: "spam"})

	if len(sender.sent) != 1 || sender.sent[0].chatID != -555 {
		t.Fatalf("report notice did not reach the admin chat: %+v", sender.sent)
	}
}

func TestSendFailureIsSwallowed(t *testing.T) {
	sender := &senderStub{err: fmt.Errorf("telegram is down")}
	users := &directoryStub{users: map[int64]model.User{
		1: {ID: 1, TelegramID: 100},
		2: {ID: 2, TelegramID: 200},
	}}
	n := New(sender, users, nil, Config{AdminChatID: -555})

	n.MatchFormed(context.Background(), 1, 2)
	n.ReportFiled(context.Background(), model.Report{ID: 1, TargetID: 2, Reason: "spam"})
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier

	n.MatchFormed(context.Background(), 1, 2)
	n.MatchEnded(context.Background(), 1, 2)
	n.ConfessionApproved(context.Background(), model.Confession{ID: 1})
	n.UserAutoHidden(context.Background(), 1, 3)
}
