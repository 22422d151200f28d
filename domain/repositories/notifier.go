package repositories

import "github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"

// Notifier publishes assistant activity to connected UI clients. Calls must
// not block.
type Notifier interface {
	NotifyToolCall(call entities.ToolCall, result string)
	NotifyReminderFired(reminder *entities.Reminder)
	NotifyTranscript(text string, isFinal bool)
	NotifyListening(listening bool)
	NotifySpeaking(speaking bool)
}
