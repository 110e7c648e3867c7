package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicware/booking-engine/internal/catalog"
)

// Reply carries the single outbound message produced for one inbound turn.
type Reply struct {
	Body string
}

const (
	humanDateLayout = "Monday, Jan 2"
	humanTimeLayout = "3:04 PM"
)

func replyGreeting() string {
	return "Hi! I can help you book an appointment or reschedule an existing one. What would you like to do?"
}

func replyAskProcedure(entries []catalog.Entry) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return fmt.Sprintf("Which service would you like to book? We offer: %s.", strings.Join(names, ", "))
}

func replyAskDate(serviceName string) string {
	return fmt.Sprintf("Great, %s it is. What day works for you? You can say things like \"tomorrow\", \"Friday\", or \"12/05\".", serviceName)
}

func replyAskTime(serviceName, humanDate string) string {
	return fmt.Sprintf("Got it, %s on %s. What time works for you?", serviceName, humanDate)
}

func replyConfirm(serviceName string, start time.Time, durationMinutes int) string {
	return fmt.Sprintf("To confirm: %s on %s at %s (about %d minutes). Shall I book it?",
		serviceName, start.Format(humanDateLayout), start.Format(humanTimeLayout), durationMinutes)
}

func replyBooked(serviceName string, start time.Time) string {
	return fmt.Sprintf("All set! Your %s is booked for %s at %s. See you then!",
		serviceName, start.Format(humanDateLayout), start.Format(humanTimeLayout))
}

func replyRescheduled(serviceName string, start time.Time) string {
	return fmt.Sprintf("Done! Your %s has been moved to %s at %s.",
		serviceName, start.Format(humanDateLayout), start.Format(humanTimeLayout))
}

func replyAlternatives(slots []time.Time) string {
	times := make([]string, 0, len(slots))
	for _, s := range slots {
		times = append(times, s.Format(humanTimeLayout))
	}
	return fmt.Sprintf("That time is already taken. On the same day I have: %s. Would one of those work?",
		strings.Join(times, ", "))
}

func replyDayFull(humanDate string) string {
	return fmt.Sprintf("I'm sorry, %s is fully booked. Could you pick another day?", humanDate)
}

func replyRestart() string {
	return "No problem, let's start over. Which service would you like, and for what day?"
}

func replyDoneIdle() string {
	return "Your appointment is confirmed. If you'd like to book another one or make a change, just let me know."
}

func replyFailure() string {
	return "Sorry, something went wrong on our side while booking. Please try again in a moment."
}

func replyInfo(entry catalog.Entry) string {
	if entry.Description != "" {
		return fmt.Sprintf("%s: %s The session takes about %d minutes.", entry.Name, entry.Description, entry.DurationMinutes)
	}
	return fmt.Sprintf("%s takes about %d minutes. Want me to book one for you?", entry.Name, entry.DurationMinutes)
}

func replyNoUpcoming(entries []catalog.Entry) string {
	return "I couldn't find an upcoming appointment to move, but I can book a new one. " + replyAskProcedure(entries)
}

func replyAskRescheduleDate(serviceName string) string {
	return fmt.Sprintf("Sure, let's move your %s. What new day works for you?", serviceName)
}

func replyConfirmYesNo() string {
	return "Sorry, I didn't catch that. Should I go ahead and book it? Please reply yes or no."
}

func replyUnrecognizedDate() string {
	return "I couldn't find a date in that. Could you tell me the day, like \"tomorrow\", \"Friday\", or \"12/05\"?"
}

func replyUnrecognizedTime() string {
	return "I couldn't find a time in that. Could you tell me the time, like \"14:30\" or \"9h\"?"
}
