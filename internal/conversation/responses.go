package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/carelane/clinic-concierge/internal/booking"
	"github.com/carelane/clinic-concierge/internal/schedule"
)

func displayDate(date string) string {
	day, err := time.Parse(schedule.DateLayout, date)
	if err != nil {
		return date
	}
	return day.Format("Monday, Jan 2")
}

func greetingReply() string {
	return "Hi! I'm the booking assistant. I can help you schedule an appointment. " +
		"What day would you like to come in?"
}

func askDateReply(emergency bool) string {
	if emergency {
		return "I understand this is urgent, so let's get you seen as soon as possible. " +
			"What day works for you? You can say \"today\", \"tomorrow\", or a date."
	}
	return "What day would you like to come in? You can say \"today\", \"tomorrow\", " +
		"\"next week\", or a date like 2025-09-01."
}

func pastDateReply() string {
	return "That date has already passed. What future day would you like to come in?"
}

func tooFarAheadReply(days int) string {
	return fmt.Sprintf("We can only book appointments up to %d days in advance. "+
		"Could you pick a closer date?", days)
}

func noSlotsReply(date string) string {
	return fmt.Sprintf("I'm sorry, there are no open times on %s. "+
		"Would another day work for you?", displayDate(date))
}

func noSlotsInWindowReply() string {
	return "I couldn't find any open times next week. Would another day work for you?"
}

func slotListReply(intro string, slots []schedule.TimeSlot) string {
	var b strings.Builder
	if intro != "" {
		b.WriteString(intro)
	} else if len(slots) > 0 {
		fmt.Fprintf(&b, "Here are the available times for %s:", slots[0].DisplayDate)
	}
	for i, s := range slots {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s.Time)
	}
	b.WriteString("\nWhich time works for you?")
	return b.String()
}

func slotConflictReply(slots []schedule.TimeSlot) string {
	return slotListReply("I'm sorry, that time was just booked by someone else. "+
		"Here are the times still available:", slots)
}

func typeListReply(types []string) string {
	var b strings.Builder
	b.WriteString("What kind of appointment do you need?")
	for i, t := range types {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t)
	}
	return b.String()
}

func missingInfoReply(missing []string) string {
	return fmt.Sprintf("To finish booking I still need your %s. "+
		"You can send everything at once, like: John Smith, 9876543210, john@email.com, 30",
		humanJoin(missing))
}

func humanJoin(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func summaryReply(d BookingDraft) string {
	var b strings.Builder
	b.WriteString("Here's what I have:")
	fmt.Fprintf(&b, "\nDate: %s", displayDate(d.SelectedDate))
	fmt.Fprintf(&b, "\nTime: %s", d.SelectedTime)
	fmt.Fprintf(&b, "\nType: %s", d.AppointmentType)
	fmt.Fprintf(&b, "\nName: %s", d.PatientName)
	fmt.Fprintf(&b, "\nPhone: %s", d.PatientPhone)
	fmt.Fprintf(&b, "\nEmail: %s", d.PatientEmail)
	fmt.Fprintf(&b, "\nAge: %d", d.PatientAge)
	if d.DoctorPreference != "" {
		fmt.Fprintf(&b, "\nDoctor: %s", d.DoctorPreference)
	}
	if d.IsEmergency {
		b.WriteString("\nMarked as urgent.")
	}
	b.WriteString("\nShall I book it? (yes/no)")
	return b.String()
}

func confirmationReply(appt booking.Appointment) string {
	reply := fmt.Sprintf("You're all set! Your %s is booked for %s at %s. "+
		"A confirmation is on its way to you.",
		strings.ToLower(appt.AppointmentType), displayDate(appt.Date), appt.Time)
	if appt.IsEmergency {
		reply += " We've flagged your visit as urgent so the team is ready for you."
	}
	return reply
}

func restartReply() string {
	return "No problem, let's start over. What day would you like to come in?"
}

func cancelledReply() string {
	return "Okay, I've cancelled this booking request. " +
		"Just say the word if you'd like to schedule an appointment later."
}

func confirmNudgeReply() string {
	return "Just to be sure: should I book this appointment? Please reply yes or no."
}

func apologyReply() string {
	return "I'm sorry, something went wrong on my end. Let's start fresh: " +
		"what day would you like to book an appointment for?"
}

func configErrorReply() string {
	return "I'm sorry, online booking isn't available right now. " +
		"Please call the clinic directly and we'll get you scheduled."
}

func commitErrorReply() string {
	return "I'm sorry, I couldn't complete the booking just now. " +
		"Could you say \"yes\" again to retry?"
}
