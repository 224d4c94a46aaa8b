package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"appointly/internal/events"
	"appointly/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	callbackRespond = "respond:"
	agendaDays      = 7
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	actor, ok := b.resolveActor(ctx, chatID)
	if !ok {
		b.sendMessage(chatID, msgUnknownChat)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, fmt.Sprintf(
			"👋 Здравствуйте, %s!\n\n/agenda - записи на неделю\n/accept <номер> - принять приглашение\n/decline <номер> - отклонить приглашение",
			actor.Name))
	case "agenda":
		b.handleAgenda(ctx, chatID, actor)
	case "accept":
		b.handleRespondCommand(ctx, chatID, actor, msg.CommandArguments(), models.AttendeeAccepted)
	case "decline":
		b.handleRespondCommand(ctx, chatID, actor, msg.CommandArguments(), models.AttendeeDeclined)
	default:
		b.sendMessage(chatID, "Неизвестная команда. Наберите /help")
	}
}

func (b *Bot) handleRespondCommand(ctx context.Context, chatID int64, actor models.Actor, args string, decision models.AttendeeStatus) {
	bookingID, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	if err != nil || bookingID <= 0 {
		b.sendMessage(chatID, msgUsageRespond)
		return
	}
	b.sendMessage(chatID, b.respond(ctx, actor, bookingID, decision))
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID

	bookingID, decision, ok := parseRespondData(callback.Data)
	if !ok {
		b.answerCallback(callback.ID, "")
		return
	}

	actor, found := b.resolveActor(ctx, chatID)
	if !found {
		b.answerCallback(callback.ID, "")
		b.sendMessage(chatID, msgUnknownChat)
		return
	}

	text := b.respond(ctx, actor, bookingID, decision)
	b.answerCallback(callback.ID, "")
	b.dropKeyboard(chatID, callback.Message.MessageID)
	b.sendMessage(chatID, text)
}

// respond записывает ответ участника и возвращает текст для пользователя.
func (b *Bot) respond(ctx context.Context, actor models.Actor, bookingID int64, decision models.AttendeeStatus) string {
	l := zerolog.Ctx(ctx)

	attendee, err := b.attendance.Respond(ctx, actor, bookingID, decision)
	if err != nil {
		l.Warn().Err(err).Int64("booking_id", bookingID).Str("party_id", actor.ID).Msg("respond failed")
		return getErrorMessage(err)
	}
	if b.metrics != nil {
		b.metrics.ResponsesTotal.WithLabelValues(string(attendee.Status)).Inc()
	}

	if attendee.Status == models.AttendeeAccepted {
		return fmt.Sprintf("✅ Приглашение на встречу #%d принято.", bookingID)
	}
	return fmt.Sprintf("❌ Приглашение на встречу #%d отклонено.", bookingID)
}

func (b *Bot) handleAgenda(ctx context.Context, chatID int64, actor models.Actor) {
	from := b.now()
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	// ListBookings включает обе границы
	to := from.AddDate(0, 0, agendaDays-1)

	list, err := b.bookings.ListBookings(ctx, from, to)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("agenda: list bookings")
		b.sendMessage(chatID, getErrorMessage(err))
		return
	}

	var sb strings.Builder
	sb.WriteString("📅 Записи на неделю:\n\n")
	n := 0
	for i := range list {
		if !involves(list[i].ConfirmedBooking, actor.Party(), actor.ID) {
			continue
		}
		n++
		sb.WriteString(agendaLine(&list[i], b.directory.Labels(ctx, list[i].ConfirmedBooking).Service, actor))
		sb.WriteString("\n")
	}
	if n == 0 {
		b.sendMessage(chatID, "📅 На ближайшую неделю записей нет.")
		return
	}
	b.sendMessage(chatID, sb.String())
}

func agendaLine(stored *models.StoredBooking, service string, actor models.Actor) string {
	line := fmt.Sprintf("#%d %s", stored.ID, formatWhen(stored.Timestamp))
	if service != "" {
		line += " " + service
	}
	if stored.Variant == models.VariantMeeting {
		for _, a := range stored.Attendees {
			if a.PartyKind == actor.Party() && a.PartyID == actor.ID {
				line += " " + statusMark(a.Status)
			}
		}
	}
	return line
}

// HandleBookingSubmitted returns an event handler that invites pending
// meeting attendees who have a chat.
func (b *Bot) HandleBookingSubmitted() events.EventHandler {
	return func(event *events.Event) error {
		var payload events.BookingSubmittedPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		if payload.Variant != string(models.VariantMeeting) {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()
		return b.Invite(ctx, payload.BookingID)
	}
}

// Invite sends the invitation with accept/decline buttons to every pending attendee.
func (b *Bot) Invite(ctx context.Context, bookingID int64) error {
	stored, err := b.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %d: %w", bookingID, err)
	}

	chats, err := b.partyChats(ctx)
	if err != nil {
		return err
	}

	labels := b.directory.Labels(ctx, stored.ConfirmedBooking)
	text := invitationText(stored, labels.Service, labels.Employees, labels.Clients)
	keyboard := respondKeyboard(bookingID)

	var errs []error
	for _, a := range stored.Attendees {
		if a.Status != models.AttendeePending {
			continue
		}
		chatID := chats[partyKey(a.PartyKind, a.PartyID)]
		if chatID == 0 {
			b.logger.Debug().Str("party_id", a.PartyID).Msg("attendee has no chat, invitation skipped")
			continue
		}
		if err := b.sendWithKeyboard(chatID, text, keyboard); err != nil {
			errs = append(errs, fmt.Errorf("invite %s: %w", a.PartyID, err))
			continue
		}
		if b.metrics != nil {
			b.metrics.InvitationsSent.Inc()
		}
	}
	return errors.Join(errs...)
}

// resolveActor находит сотрудника или клиента по chat id.
func (b *Bot) resolveActor(ctx context.Context, chatID int64) (models.Actor, bool) {
	if chatID == 0 {
		return models.Actor{}, false
	}
	employees, err := b.directory.ListEmployees(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("resolve actor: list employees")
		return models.Actor{}, false
	}
	for _, e := range employees {
		if e.IsActive && e.TelegramChatID == chatID {
			return models.NewActor(e.ID, e.Name, nil), true
		}
	}

	clients, err := b.directory.ListClients(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("resolve actor: list clients")
		return models.Actor{}, false
	}
	for _, c := range clients {
		if c.IsActive && c.TelegramChatID == chatID {
			actor := models.NewActor(c.ID, c.Name, nil)
			actor.Kind = models.PartyClient
			return actor, true
		}
	}
	return models.Actor{}, false
}

func (b *Bot) partyChats(ctx context.Context) (map[string]int64, error) {
	employees, err := b.directory.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	clients, err := b.directory.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	chats := make(map[string]int64, len(employees)+len(clients))
	for _, e := range employees {
		if e.IsActive && e.TelegramChatID != 0 {
			chats[partyKey(models.PartyEmployee, e.ID)] = e.TelegramChatID
		}
	}
	for _, c := range clients {
		if c.IsActive && c.TelegramChatID != 0 {
			chats[partyKey(models.PartyClient, c.ID)] = c.TelegramChatID
		}
	}
	return chats, nil
}

func partyKey(kind models.PartyKind, id string) string {
	return string(kind) + ":" + id
}

func involves(b models.ConfirmedBooking, kind models.PartyKind, partyID string) bool {
	primary, ids := b.EmployeeID, b.EmployeeIDs
	if kind == models.PartyClient {
		primary, ids = b.ClientID, b.ClientIDs
	}
	if primary == partyID || slices.Contains(ids, partyID) {
		return true
	}
	for _, a := range b.Attendees {
		if a.PartyKind == kind && a.PartyID == partyID {
			return true
		}
	}
	return false
}

func respondKeyboard(bookingID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(bookingID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Принять", callbackRespond+id+":"+string(models.AttendeeAccepted)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackRespond+id+":"+string(models.AttendeeDeclined)),
		),
	)
}

// parseRespondData разбирает "respond:<id>:<decision>".
func parseRespondData(data string) (int64, models.AttendeeStatus, bool) {
	rest, ok := strings.CutPrefix(data, callbackRespond)
	if !ok {
		return 0, "", false
	}
	rawID, decision, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, models.AttendeeStatus(decision), true
}

func invitationText(stored *models.StoredBooking, service string, employees, clients []string) string {
	var out strings.Builder
	fmt.Fprintf(&out, "📨 Приглашение на встречу #%d\n\n", stored.ID)
	fmt.Fprintf(&out, "📅 %s\n", formatWhen(stored.Timestamp))
	if stored.DurationMinutes > 0 {
		fmt.Fprintf(&out, "⏱ %d мин\n", stored.DurationMinutes)
	}
	if service != "" {
		fmt.Fprintf(&out, "💼 %s\n", service)
	}
	if len(employees) > 0 {
		fmt.Fprintf(&out, "👥 %s\n", strings.Join(employees, ", "))
	}
	if len(clients) > 0 {
		fmt.Fprintf(&out, "🏢 %s\n", strings.Join(clients, ", "))
	}
	if stored.Notes != "" {
		fmt.Fprintf(&out, "📝 %s\n", stored.Notes)
	}
	return out.String()
}

func formatWhen(timestamp string) string {
	t, err := time.Parse(models.TimestampLayout, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Format("02.01.2006 15:04")
}

func statusMark(s models.AttendeeStatus) string {
	switch s {
	case models.AttendeeAccepted:
		return "✅"
	case models.AttendeeDeclined:
		return "❌"
	default:
		return "⏳"
	}
}
