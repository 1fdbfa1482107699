package service

import (
	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
)

// Service is the public operation surface. Each method maps to one
// externally callable operation.
type Service struct {
	stores *memory.Stores

	Users     *UserService
	Mail      *MailService
	Chat      *ChatService
	Reminders *ReminderService
}

// New wires the services over stores. sched provides both the clock and the
// deferred callbacks of reminders.
func New(stores *memory.Stores, sched runloop.Scheduler, opts ...Option) *Service {
	return &Service{
		stores:    stores,
		Users:     NewUserService(stores, sched),
		Mail:      NewMailService(stores, sched, opts...),
		Chat:      NewChatService(stores, sched, opts...),
		Reminders: NewReminderService(stores, sched, opts...),
	}
}

// Stores returns the stores the services operate on.
func (s *Service) Stores() *memory.Stores {
	return s.stores
}

// GetOrCreateUser registers caller on first contact.
func (s *Service) GetOrCreateUser(caller domain.Principal) (domain.User, bool, error) {
	return s.Users.GetOrCreate(caller)
}

// SendMail delivers an email from sender to receiver.
func (s *Service) SendMail(sender, receiver domain.Principal, subject, body string) (domain.Email, error) {
	return s.Mail.Send(sender, receiver, subject, body)
}

// Inbox returns the emails received by owner.
func (s *Service) Inbox(owner domain.Principal) []domain.Email {
	return s.Mail.Inbox(owner)
}

// SentMail returns the emails sent by owner.
func (s *Service) SentMail(owner domain.Principal) []domain.Email {
	return s.Mail.Sent(owner)
}

// MarkRead flags an inbox email as read.
func (s *Service) MarkRead(owner, sender domain.Principal, timestamp uint64) bool {
	return s.Mail.MarkRead(owner, sender, timestamp)
}

// ToggleStar sets or clears a star and echoes the requested state.
func (s *Service) ToggleStar(owner, sender domain.Principal, timestamp uint64, starred bool) bool {
	return s.Mail.ToggleStar(owner, sender, timestamp, starred)
}

// IsStarred reports whether owner starred the addressed email.
func (s *Service) IsStarred(owner, sender domain.Principal, timestamp uint64) bool {
	return s.Mail.IsStarred(owner, sender, timestamp)
}

// StarredKeys returns owner's starred addresses in starring order.
func (s *Service) StarredKeys(owner domain.Principal) []domain.EmailKey {
	return s.Mail.StarredKeys(owner)
}

// StarredEmails resolves owner's stars against inbox then sent mail.
func (s *Service) StarredEmails(owner domain.Principal) []domain.Email {
	return s.Mail.StarredEmails(owner)
}

// SendChat appends a message to the thread of sender and receiver.
func (s *Service) SendChat(sender, receiver domain.Principal, content string) (domain.ChatMessage, error) {
	return s.Chat.Send(sender, receiver, content)
}

// ChatMessages returns the thread of caller and other.
func (s *Service) ChatMessages(caller, other domain.Principal) []domain.ChatMessage {
	return s.Chat.Thread(caller, other)
}

// MarkChatRead moves caller's read marker for other to now.
func (s *Service) MarkChatRead(caller, other domain.Principal) {
	s.Chat.MarkRead(caller, other)
}

// ChatList returns the conversation previews of caller.
func (s *Service) ChatList(caller domain.Principal) []domain.ChatPreview {
	return s.Chat.Previews(caller)
}

// SetReminder schedules a reminder about an email.
func (s *Service) SetReminder(owner, emailSender domain.Principal, emailTimestamp, remindAt uint64) (domain.Reminder, error) {
	return s.Reminders.Set(owner, emailSender, emailTimestamp, remindAt)
}

// MyReminders returns every reminder of owner, pending and fired.
func (s *Service) MyReminders(owner domain.Principal) []domain.Reminder {
	return s.Reminders.List(owner)
}

// DueReminders returns owner's fired reminders not yet dismissed.
func (s *Service) DueReminders(owner domain.Principal) []domain.Reminder {
	return s.Reminders.Due(owner)
}

// DismissReminder removes a fired reminder; pending ones are kept.
func (s *Service) DismissReminder(owner, emailSender domain.Principal, emailTimestamp uint64) bool {
	return s.Reminders.Dismiss(owner, emailSender, emailTimestamp)
}

// CancelReminder removes a reminder whatever its state.
func (s *Service) CancelReminder(owner, emailSender domain.Principal, emailTimestamp uint64) bool {
	return s.Reminders.Cancel(owner, emailSender, emailTimestamp)
}

// RearmReminders arms every pending reminder after a restore.
func (s *Service) RearmReminders() int {
	return s.Reminders.Rearm()
}
