package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	tginfra "github.com/Envologia/unimatch-ethio/internal/infra/telegram"
	redrepo "github.com/Envologia/unimatch-ethio/internal/repo/redis"
	confsvc "github.com/Envologia/unimatch-ethio/internal/services/confessions"
	profilesvc "github.com/Envologia/unimatch-ethio/internal/services/profiles"
	reportsvc "github.com/Envologia/unimatch-ethio/internal/services/reports"
	sessionsvc "github.com/Envologia/unimatch-ethio/internal/services/sessions"
)

const (
	stateRegAge        = "reg:age"
	stateRegGender     = "reg:gender"
	stateRegUniversity = "reg:university"
	stateRegBio        = "reg:bio"
	stateRegHobbies    = "reg:hobbies"
	stateRegPhoto      = "reg:photo"
	stateConfessText   = "confess:text"
	stateReportReason  = "report:reason"
	stateSwipe         = "swipe"
)

const dialogTTL = 30 * time.Minute

const (
	missingProfileInstruction = "You don't have a profile yet. Send /start to create one."
	noCandidatesInstruction   = "No candidates right now. Try again later or widen your preferences with /prefs."
	sessionExpiredInstruction = "Your matching session expired. Send /match to start a new one."
	helpInstruction           = "Commands:\n" +
		"/match - browse candidates\n" +
		"/matches - your active matches\n" +
		"/confess - submit an anonymous confession\n" +
		"/myconfessions - your confession history\n" +
		"/quota - what you have left today\n" +
		"/prefs <min> <max> [university] - candidate filters\n" +
		"/pause - hide your profile\n" +
		"/resume - show your profile again\n" +
		"/cancel - abort the current dialogue"
)

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.handleStart(ctx, update)
	case "help":
		return a.bot.SendText(ctx, update.ChatID, helpInstruction)
	case "match":
		return a.handleMatch(ctx, update)
	case "matches":
		return a.handleMatches(ctx, update)
	case "confess":
		return a.handleConfess(ctx, update)
	case "myconfessions":
		return a.handleMyConfessions(ctx, update)
	case "quota":
		return a.handleQuota(ctx, update)
	case "prefs":
		return a.handlePrefs(ctx, update)
	case "pause":
		return a.handleVisibility(ctx, update, false)
	case "resume":
		return a.handleVisibility(ctx, update, true)
	case "cancel":
		return a.handleCancel(ctx, update)
	case "queue":
		return a.handleModerationQueue(ctx, update)
	default:
		return nil
	}
}

func (a *App) handleStart(ctx context.Context, update tginfra.CommandUpdate) error {
	if _, err := a.profileService.GetByTelegramID(ctx, update.UserID); err == nil {
		text := "Welcome back! Send /match to browse candidates, or /help for everything else.\n" +
			"To rebuild your profile from scratch, just answer the questions again.\n\n" +
			"How old are you?"
		if err := a.setState(ctx, update.UserID, stateRegAge, nil); err != nil {
			return err
		}
		return a.bot.SendText(ctx, update.ChatID, text)
	} else if !errors.Is(err, profilesvc.ErrUserNotFound) {
		return err
	}

	if err := a.setState(ctx, update.UserID, stateRegAge, nil); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Hi! Let's set up your profile.\n\nHow old are you?")
}

func (a *App) handleMatch(ctx context.Context, update tginfra.CommandUpdate) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	queueID, err := a.sessionService.StartSession(ctx, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, sessionsvc.ErrQuotaExceeded):
			return a.bot.SendText(ctx, update.ChatID, "You are out of match actions for today. Come back tomorrow!")
		case errors.Is(err, sessionsvc.ErrValidation):
			return a.bot.SendText(ctx, update.ChatID, "Your profile is paused. Send /resume to browse candidates.")
		case errors.Is(err, sessionsvc.ErrSeekerNotFound):
			return a.bot.SendText(ctx, update.ChatID, missingProfileInstruction)
		default:
			return err
		}
	}

	return a.sendNextCandidate(ctx, update.ChatID, user, queueID)
}

func (a *App) sendNextCandidate(ctx context.Context, chatID int64, user model.User, queueID string) error {
	candidate, err := a.sessionService.NextCandidate(ctx, queueID)
	if err != nil {
		switch {
		case errors.Is(err, sessionsvc.ErrQueueExhausted):
			_ = a.states.Clear(ctx, user.TelegramID)
			return a.bot.SendText(ctx, chatID, noCandidatesInstruction)
		case errors.Is(err, sessionsvc.ErrSessionExpired):
			_ = a.states.Clear(ctx, user.TelegramID)
			return a.bot.SendText(ctx, chatID, sessionExpiredInstruction)
		default:
			return err
		}
	}

	data := map[string]string{
		"queue_id":     queueID,
		"candidate_id": strconv.FormatInt(candidate.ID, 10),
	}
	ttl := a.cfg.Matching.QueueTTL
	if ttl <= 0 {
		ttl = dialogTTL
	}
	if err := a.states.Set(ctx, user.TelegramID, stateSwipe, data, ttl); err != nil {
		return err
	}

	caption := formatCandidateCard(candidate)
	if remaining, err := a.sessionService.Remaining(ctx, queueID); err == nil && remaining > 0 {
		caption += fmt.Sprintf("\n\n%d more in queue", remaining)
	}

	candidateID := strconv.FormatInt(candidate.ID, 10)
	return a.bot.SendPhoto(ctx, chatID, candidate.PhotoID, caption,
		[]tginfra.Button{
			{Label: "❤️ Like", Data: "sw:like:" + candidateID},
			{Label: "➡️ Skip", Data: "sw:skip:" + candidateID},
		},
		[]tginfra.Button{
			{Label: "Report", Data: "sw:report:" + candidateID},
			{Label: "Stop", Data: "sw:stop"},
		},
	)
}

func (a *App) handleMatches(ctx context.Context, update tginfra.CommandUpdate) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	matches, err := a.matchRepo.ListActiveForUser(ctx, user.ID, 20)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return a.bot.SendText(ctx, update.ChatID, "No active matches yet. Send /match to start browsing.")
	}

	for _, match := range matches {
		otherID := match.Other(user.ID)

		other, err := a.profileService.GetByID(ctx, otherID)
		if err != nil {
			if errors.Is(err, profilesvc.ErrUserNotFound) {
				continue
			}
			return err
		}

		text := formatMatchCard(other)
		err = a.bot.SendKeyboard(ctx, update.ChatID, text, []tginfra.Button{
			{Label: "Unmatch", Data: "um:" + strconv.FormatInt(otherID, 10)},
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *App) handleConfess(ctx context.Context, update tginfra.CommandUpdate) error {
	_, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	if err := a.setState(ctx, update.UserID, stateConfessText, nil); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Send your confession as one message. It is posted anonymously after moderation.")
}

func (a *App) handleMyConfessions(ctx context.Context, update tginfra.CommandUpdate) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	confessions, err := a.confessionService.ListMine(ctx, user.ID, 10)
	if err != nil {
		return err
	}
	if len(confessions) == 0 {
		return a.bot.SendText(ctx, update.ChatID, "You haven't submitted any confessions yet. Send /confess to write one.")
	}

	lines := make([]string, 0, len(confessions))
	for _, confession := range confessions {
		lines = append(lines, fmt.Sprintf("#%d [%s] %s", confession.ID, confession.Status, truncate(confession.Content, 80)))
	}
	return a.bot.SendText(ctx, update.ChatID, strings.Join(lines, "\n"))
}

func (a *App) handleQuota(ctx context.Context, update tginfra.CommandUpdate) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	snapshot, err := a.quotaService.GetSnapshot(ctx, user.ID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"Today:\nMatch actions: %d of %d used\nConfessions: %d of %d used\nResets at %s UTC",
		snapshot.MatchActionsUsed, snapshot.MatchActionsLimit,
		snapshot.ConfessionsUsed, snapshot.ConfessionsLimit,
		snapshot.ResetsAt.Format("15:04"),
	)
	return a.bot.SendText(ctx, update.ChatID, text)
}

func (a *App) handlePrefs(ctx context.Context, update tginfra.CommandUpdate) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	fields := strings.Fields(update.Args)
	if len(fields) < 2 {
		return a.bot.SendText(ctx, update.ChatID, "Usage: /prefs <min age> <max age> [university]\nExample: /prefs 19 24 AAU")
	}

	ageMin, err1 := strconv.Atoi(fields[0])
	ageMax, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return a.bot.SendText(ctx, update.ChatID, "Ages must be numbers. Example: /prefs 19 24")
	}

	var university *string
	if len(fields) > 2 {
		joined := strings.Join(fields[2:], " ")
		university = &joined
	}

	if _, err := a.profileService.UpdatePreferences(ctx, user.ID, &ageMin, &ageMax, university); err != nil {
		switch {
		case errors.Is(err, profilesvc.ErrAgeRejected):
			return a.bot.SendText(ctx, update.ChatID, "Preferred ages must stay inside the allowed range.")
		case errors.Is(err, profilesvc.ErrValidation):
			return a.bot.SendText(ctx, update.ChatID, "Min age must not exceed max age.")
		default:
			return err
		}
	}

	return a.bot.SendText(ctx, update.ChatID, "Preferences saved.")
}

func (a *App) handleVisibility(ctx context.Context, update tginfra.CommandUpdate, visible bool) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	if _, err := a.profileService.SetVisibility(ctx, user.ID, visible); err != nil {
		return err
	}

	if visible {
		return a.bot.SendText(ctx, update.ChatID, "Your profile is visible again.")
	}
	return a.bot.SendText(ctx, update.ChatID, "Your profile is paused. Others won't see you until /resume.")
}

func (a *App) handleCancel(ctx context.Context, update tginfra.CommandUpdate) error {
	state, data, err := a.states.Get(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, redrepo.ErrStateNotFound) {
			return a.bot.SendText(ctx, update.ChatID, "Nothing to cancel.")
		}
		return err
	}

	if state == stateSwipe {
		if queueID := data["queue_id"]; queueID != "" {
			if err := a.sessionService.Cancel(ctx, queueID); err != nil {
				a.logger.Warn("cancel matching session", zap.Error(err))
			}
		}
	}

	if err := a.states.Clear(ctx, update.UserID); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Cancelled.")
}

func (a *App) handleModerationQueue(ctx context.Context, update tginfra.CommandUpdate) error {
	if !a.isAdminChat(update.ChatID) {
		return nil
	}

	confession, pending, err := a.confessionService.NextPending(ctx)
	if err != nil {
		if errors.Is(err, confsvc.ErrConfessionNotFound) {
			return a.bot.SendText(ctx, update.ChatID, "The moderation queue is empty.")
		}
		return err
	}

	confessionID := strconv.FormatInt(confession.ID, 10)
	text := fmt.Sprintf("Confession #%d (%d pending)\n\n%s", confession.ID, pending, confession.Content)
	return a.bot.SendKeyboard(ctx, update.ChatID, text, []tginfra.Button{
		{Label: "Approve", Data: "mod:approve:" + confessionID},
		{Label: "Reject", Data: "mod:reject:" + confessionID},
	})
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}

	state, data, err := a.states.Get(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, redrepo.ErrStateNotFound) {
			return nil
		}
		return err
	}

	switch state {
	case stateRegAge:
		age, err := strconv.Atoi(strings.TrimSpace(update.Text))
		if err != nil {
			return a.bot.SendText(ctx, update.ChatID, "Please send your age as a number.")
		}
		data["age"] = strconv.Itoa(age)
		if err := a.setState(ctx, update.UserID, stateRegGender, data); err != nil {
			return err
		}
		return a.bot.SendKeyboard(ctx, update.ChatID, "What is your gender?", []tginfra.Button{
			{Label: "Male", Data: "gender:male"},
			{Label: "Female", Data: "gender:female"},
			{Label: "Other", Data: "gender:other"},
		})
	case stateRegUniversity:
		data["university"] = update.Text
		if err := a.setState(ctx, update.UserID, stateRegBio, data); err != nil {
			return err
		}
		return a.bot.SendText(ctx, update.ChatID, "Write a short bio about yourself.")
	case stateRegBio:
		data["bio"] = update.Text
		if err := a.setState(ctx, update.UserID, stateRegHobbies, data); err != nil {
			return err
		}
		return a.bot.SendText(ctx, update.ChatID, "List your hobbies, separated by commas.")
	case stateRegHobbies:
		data["hobbies"] = update.Text
		if err := a.setState(ctx, update.UserID, stateRegPhoto, data); err != nil {
			return err
		}
		return a.bot.SendText(ctx, update.ChatID, "Send a profile photo, or type \"skip\".")
	case stateRegPhoto:
		if strings.EqualFold(strings.TrimSpace(update.Text), "skip") {
			return a.finishRegistration(ctx, update.ChatID, update.UserID, update.Username, data, "")
		}
		return a.bot.SendText(ctx, update.ChatID, "Send a photo, or type \"skip\".")
	case stateConfessText:
		return a.submitConfession(ctx, update)
	case stateReportReason:
		return a.submitReport(ctx, update, data)
	default:
		return nil
	}
}

func (a *App) submitConfession(ctx context.Context, update tginfra.TextUpdate) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	if _, err := a.confessionService.Submit(ctx, user.ID, update.Text); err != nil {
		switch {
		case errors.Is(err, confsvc.ErrQuotaExceeded):
			_ = a.states.Clear(ctx, update.UserID)
			return a.bot.SendText(ctx, update.ChatID, "You are out of confessions for today.")
		case errors.Is(err, confsvc.ErrContentTooLong):
			return a.bot.SendText(ctx, update.ChatID, "That's too long. Please shorten it and send again.")
		case errors.Is(err, confsvc.ErrValidation):
			return a.bot.SendText(ctx, update.ChatID, "Please send the confession as plain text.")
		default:
			return err
		}
	}

	if err := a.states.Clear(ctx, update.UserID); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Got it. Your confession is waiting for moderation.")
}

func (a *App) submitReport(ctx context.Context, update tginfra.TextUpdate, data map[string]string) error {
	user, ok, err := a.requireProfile(ctx, update.ChatID, update.UserID)
	if err != nil || !ok {
		return err
	}

	targetID, err := strconv.ParseInt(data["target_id"], 10, 64)
	if err != nil || targetID <= 0 {
		_ = a.states.Clear(ctx, update.UserID)
		return a.bot.SendText(ctx, update.ChatID, "Something went wrong, please start over with /match.")
	}

	if _, err := a.reportService.Submit(ctx, user.ID, targetID, update.Text); err != nil {
		switch {
		case errors.Is(err, reportsvc.ErrTargetNotFound):
			_ = a.states.Clear(ctx, update.UserID)
			return a.bot.SendText(ctx, update.ChatID, "That profile no longer exists.")
		case errors.Is(err, reportsvc.ErrValidation):
			return a.bot.SendText(ctx, update.ChatID, "Please describe the problem in a short message.")
		default:
			return err
		}
	}

	if err := a.states.Clear(ctx, update.UserID); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Report filed. You won't see each other anymore.")
}

func (a *App) handlePhoto(ctx context.Context, update tginfra.PhotoUpdate) error {
	if a.bot == nil {
		return nil
	}

	state, data, err := a.states.Get(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, redrepo.ErrStateNotFound) {
			return nil
		}
		return err
	}
	if state != stateRegPhoto {
		return nil
	}

	return a.finishRegistration(ctx, update.ChatID, update.UserID, update.Username, data, update.FileID)
}

func (a *App) finishRegistration(ctx context.Context, chatID, telegramID int64, username string, data map[string]string, photoID string) error {
	age, _ := strconv.Atoi(data["age"])

	_, err := a.profileService.Register(ctx, profilesvc.RegisterInput{
		TelegramID: telegramID,
		Username:   username,
		Age:        age,
		Gender:     data["gender"],
		University: data["university"],
		Bio:        data["bio"],
		Hobbies:    data["hobbies"],
		PhotoID:    photoID,
	})
	if err != nil {
		switch {
		case errors.Is(err, profilesvc.ErrAgeRejected):
			_ = a.states.Clear(ctx, telegramID)
			return a.bot.SendText(ctx, chatID, "Sorry, this service is only for students aged within the allowed range.")
		case errors.Is(err, profilesvc.ErrValidation):
			_ = a.states.Clear(ctx, telegramID)
			return a.bot.SendText(ctx, chatID, "Something in your answers didn't validate. Send /start to try again.")
		default:
			return err
		}
	}

	if err := a.states.Clear(ctx, telegramID); err != nil {
		return err
	}
	return a.bot.SendText(ctx, chatID, "Your profile is ready! Send /match to start browsing candidates.")
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if a.bot == nil {
		return nil
	}

	parts := strings.Split(strings.TrimSpace(update.Data), ":")
	switch parts[0] {
	case "gender":
		return a.handleGenderCallback(ctx, update, parts)
	case "sw":
		return a.handleSwipeCallback(ctx, update, parts)
	case "um":
		return a.handleUnmatchCallback(ctx, update, parts)
	case "mod":
		return a.handleModerationCallback(ctx, update, parts)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}
}

func (a *App) handleGenderCallback(ctx context.Context, update tginfra.CallbackUpdate, parts []string) error {
	if len(parts) != 2 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}

	state, data, err := a.states.Get(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, redrepo.ErrStateNotFound) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, "This dialogue has expired")
		}
		return err
	}
	if state != stateRegGender {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Not expecting that right now")
	}

	data["gender"] = parts[1]
	if err := a.setState(ctx, update.UserID, stateRegUniversity, data); err != nil {
		return err
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Which university do you attend?")
}

func (a *App) handleSwipeCallback(ctx context.Context, update tginfra.CallbackUpdate, parts []string) error {
	user, err := a.profileService.GetByTelegramID(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrUserNotFound) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Create a profile with /start first")
		}
		return err
	}

	if len(parts) == 2 && parts[1] == "stop" {
		return a.stopSwiping(ctx, update, user)
	}
	if len(parts) != 3 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}

	candidateID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || candidateID <= 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Invalid candidate")
	}

	switch parts[1] {
	case "like", "skip":
		return a.submitSwipe(ctx, update, user, candidateID, parts[1])
	case "report":
		return a.startReport(ctx, update, user, candidateID)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}
}

func (a *App) submitSwipe(ctx context.Context, update tginfra.CallbackUpdate, user model.User, candidateID int64, choice string) error {
	retryAfter, allowed, err := a.limiter.AllowAction(ctx, user.ID)
	if err != nil {
		return err
	}
	if !allowed {
		return a.bot.AnswerCallback(ctx, update.CallbackID, fmt.Sprintf("Slow down, try again in %ds", retryAfter))
	}

	matched, err := a.sessionService.SubmitChoice(ctx, user.ID, candidateID, choice)
	if err != nil {
		switch {
		case errors.Is(err, sessionsvc.ErrQuotaExceeded):
			_ = a.bot.AnswerCallback(ctx, update.CallbackID, "Out of match actions for today")
			_ = a.states.Clear(ctx, update.UserID)
			return a.bot.SendText(ctx, update.ChatID, "You are out of match actions for today. Come back tomorrow!")
		case errors.Is(err, sessionsvc.ErrCandidateGone):
			if err := a.bot.AnswerCallback(ctx, update.CallbackID, "That profile is gone"); err != nil {
				return err
			}
			return a.advanceQueue(ctx, update, user)
		case errors.Is(err, sessionsvc.ErrValidation):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Invalid action")
		default:
			return err
		}
	}

	toast := "Skipped"
	if choice == "like" {
		toast = "Liked"
	}
	if matched {
		toast = "It's a match!"
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, toast); err != nil {
		return err
	}

	return a.advanceQueue(ctx, update, user)
}

func (a *App) advanceQueue(ctx context.Context, update tginfra.CallbackUpdate, user model.User) error {
	state, data, err := a.states.Get(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, redrepo.ErrStateNotFound) {
			return a.bot.SendText(ctx, update.ChatID, sessionExpiredInstruction)
		}
		return err
	}
	if state != stateSwipe || data["queue_id"] == "" {
		return nil
	}

	return a.sendNextCandidate(ctx, update.ChatID, user, data["queue_id"])
}

func (a *App) startReport(ctx context.Context, update tginfra.CallbackUpdate, user model.User, candidateID int64) error {
	data := map[string]string{"target_id": strconv.FormatInt(candidateID, 10)}
	if err := a.setState(ctx, update.UserID, stateReportReason, data); err != nil {
		return err
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "What's wrong with this profile? Describe it in one message.")
}

func (a *App) stopSwiping(ctx context.Context, update tginfra.CallbackUpdate, user model.User) error {
	state, data, err := a.states.Get(ctx, update.UserID)
	if err == nil && state == stateSwipe && data["queue_id"] != "" {
		if err := a.sessionService.Cancel(ctx, data["queue_id"]); err != nil {
			a.logger.Warn("cancel matching session", zap.Error(err), zap.Int64("user_id", user.ID))
		}
	}

	_ = a.states.Clear(ctx, update.UserID)
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, "Stopped. Send /match whenever you want to continue.")
}

func (a *App) handleUnmatchCallback(ctx context.Context, update tginfra.CallbackUpdate, parts []string) error {
	if len(parts) != 2 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}

	user, err := a.profileService.GetByTelegramID(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrUserNotFound) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Create a profile with /start first")
		}
		return err
	}

	otherID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || otherID <= 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Invalid match")
	}

	if err := a.matchService.Unmatch(ctx, user.ID, otherID); err != nil {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unmatch failed")
	}

	return a.bot.AnswerCallback(ctx, update.CallbackID, "Unmatched")
}

func (a *App) handleModerationCallback(ctx context.Context, update tginfra.CallbackUpdate, parts []string) error {
	if !a.isAdminChat(update.ChatID) {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Not allowed")
	}
	if len(parts) != 3 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}

	confessionID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || confessionID <= 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Invalid confession id")
	}

	switch parts[1] {
	case "approve":
		if _, err := a.confessionService.Approve(ctx, confessionID); err != nil {
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Approve failed")
		}
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Approved")
	case "reject":
		if _, err := a.confessionService.Reject(ctx, confessionID); err != nil {
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Reject failed")
		}
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Rejected")
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}
}

func (a *App) requireProfile(ctx context.Context, chatID, telegramID int64) (model.User, bool, error) {
	user, err := a.profileService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrUserNotFound) {
			return model.User{}, false, a.bot.SendText(ctx, chatID, missingProfileInstruction)
		}
		return model.User{}, false, err
	}
	return user, true, nil
}

func (a *App) setState(ctx context.Context, telegramID int64, state string, data map[string]string) error {
	if data == nil {
		data = map[string]string{}
	}
	return a.states.Set(ctx, telegramID, state, data, dialogTTL)
}

func (a *App) isAdminChat(chatID int64) bool {
	return a.cfg.Bot.AdminChatID != 0 && chatID == a.cfg.Bot.AdminChatID
}

func formatCandidateCard(user model.User) string {
	lines := []string{
		fmt.Sprintf("%s, %d", displayName(user), user.Age),
		user.University,
	}
	if strings.TrimSpace(user.Bio) != "" {
		lines = append(lines, "", user.Bio)
	}
	if strings.TrimSpace(user.Hobbies) != "" {
		lines = append(lines, "", "Hobbies: "+user.Hobbies)
	}
	return strings.Join(lines, "\n")
}

func formatMatchCard(user model.User) string {
	lines := []string{
		fmt.Sprintf("%s, %d", displayName(user), user.Age),
		user.University,
	}
	if strings.TrimSpace(user.Username) != "" {
		lines = append(lines, "@"+user.Username)
	}
	return strings.Join(lines, "\n")
}

func displayName(user model.User) string {
	if strings.TrimSpace(user.Username) != "" {
		return user.Username
	}
	return "Someone"
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
