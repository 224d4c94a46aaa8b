package bot

import (
	"errors"

	"appointly/internal/booking"
	"appointly/internal/database"
)

const (
	msgRateLimited  = "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного."
	msgUnknownChat  = "🔒 Этот чат не привязан ни к сотруднику, ни к клиенту. Обратитесь к администратору."
	msgUsageRespond = "Использование: /accept <номер встречи> или /decline <номер встречи>"
)

func getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, booking.ErrAlreadyResponded):
		return "ℹ️ Вы уже ответили на это приглашение."
	case errors.Is(err, booking.ErrUnknownAttendee):
		return "⚠️ Вы не приглашены на эту встречу."
	case errors.Is(err, booking.ErrInvalidDecision):
		return "⚠️ Неизвестный ответ. Используйте «принять» или «отклонить»."
	case errors.Is(err, database.ErrBookingNotFound):
		return "⚠️ Встреча не найдена."
	}

	return "❌ Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
}
