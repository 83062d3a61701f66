package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelane/clinic-concierge/internal/nlu"
	"github.com/carelane/clinic-concierge/internal/schedule"
)

func offeredSlots() []schedule.TimeSlot {
	return []schedule.TimeSlot{
		{Date: "2025-08-07", Time: "10:00 AM", DisplayDate: "Thursday, Aug 7", TimeCategory: "morning"},
		{Date: "2025-08-07", Time: "2:00 PM", DisplayDate: "Thursday, Aug 7", TimeCategory: "afternoon"},
		{Date: "2025-08-07", Time: "7:30 PM", DisplayDate: "Thursday, Aug 7", TimeCategory: "evening"},
	}
}

func TestMatchSlotLayers(t *testing.T) {
	tests := []struct {
		name    string
		message string
		parsed  nlu.ParsedInput
		want    string
	}{
		{"parser normalized time", "the later one please", nlu.ParsedInput{ExtractedTime: "7:30 PM"}, "7:30 PM"},
		{"parser time needs normalizing", "ok", nlu.ParsedInput{ExtractedTime: "7:30pm"}, "7:30 PM"},
		{"literal label in message", "2:00 PM works", nlu.ParsedInput{}, "2:00 PM"},
		{"time token in raw message", "how about 7.30 pm", nlu.ParsedInput{}, "7:30 PM"},
		{"bare number unambiguous", "lets do 2", nlu.ParsedInput{}, "2:00 PM"},
		{"bare number with minutes", "730 no wait, 7:30", nlu.ParsedInput{}, "7:30 PM"},
		{"category singles out slot", "the evening one", nlu.ParsedInput{}, "7:30 PM"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slot := matchSlot(tc.message, tc.parsed, offeredSlots())
			require.NotNil(t, slot)
			assert.Equal(t, tc.want, slot.Time)
		})
	}
}

func TestMatchSlotNoMatch(t *testing.T) {
	tests := []struct {
		name    string
		message string
		slots   []schedule.TimeSlot
	}{
		{"unrelated message", "do you validate parking", offeredSlots()},
		{"time not offered", "9:00 PM", offeredSlots()},
		{"no slots offered", "7:30 PM", nil},
		{"ambiguous bare number", "10", []schedule.TimeSlot{
			{Date: "2025-08-07", Time: "10:00 AM", TimeCategory: "morning"},
			{Date: "2025-08-07", Time: "10:00 PM", TimeCategory: "evening"},
		}},
		{"ambiguous category", "morning please", []schedule.TimeSlot{
			{Date: "2025-08-07", Time: "9:00 AM", TimeCategory: "morning"},
			{Date: "2025-08-07", Time: "10:00 AM", TimeCategory: "morning"},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, matchSlot(tc.message, nlu.ParsedInput{}, tc.slots))
		})
	}
}

func TestResolveDate(t *testing.T) {
	now := time.Date(2025, 8, 6, 10, 0, 0, 0, time.UTC)

	t.Run("explicit future date", func(t *testing.T) {
		r := resolveDate(nlu.ParsedInput{ExtractedDate: "2025-08-15"}, now)
		assert.True(t, r.present)
		assert.Equal(t, "2025-08-15", r.date)
	})

	t.Run("explicit past date flagged", func(t *testing.T) {
		r := resolveDate(nlu.ParsedInput{ExtractedDate: "2025-08-01"}, now)
		assert.True(t, r.past)
		assert.Empty(t, r.date)
	})

	t.Run("explicit date beats preference", func(t *testing.T) {
		r := resolveDate(nlu.ParsedInput{ExtractedDate: "2025-08-15", DatePreference: nlu.DatePrefToday}, now)
		assert.Equal(t, "2025-08-15", r.date)
	})

	t.Run("today and tomorrow", func(t *testing.T) {
		assert.Equal(t, "2025-08-06", resolveDate(nlu.ParsedInput{DatePreference: nlu.DatePrefToday}, now).date)
		assert.Equal(t, "2025-08-07", resolveDate(nlu.ParsedInput{DatePreference: nlu.DatePrefTomorrow}, now).date)
	})

	t.Run("next week is a window", func(t *testing.T) {
		r := resolveDate(nlu.ParsedInput{DatePreference: nlu.DatePrefNextWeek}, now)
		assert.True(t, r.present)
		assert.Empty(t, r.date)
		assert.Equal(t, "2025-08-13", r.from)
		assert.Equal(t, "2025-08-19", r.to)
	})

	t.Run("nothing date-like", func(t *testing.T) {
		assert.False(t, resolveDate(nlu.ParsedInput{}, now).present)
	})
}

func TestWantsDifferentDate(t *testing.T) {
	now := time.Date(2025, 8, 6, 10, 0, 0, 0, time.UTC)

	assert.False(t, wantsDifferentDate(nlu.ParsedInput{}, "2025-08-07", now))
	assert.False(t, wantsDifferentDate(nlu.ParsedInput{ExtractedDate: "2025-08-07"}, "2025-08-07", now))
	assert.True(t, wantsDifferentDate(nlu.ParsedInput{ExtractedDate: "2025-08-08"}, "2025-08-07", now))
	assert.True(t, wantsDifferentDate(nlu.ParsedInput{DatePreference: nlu.DatePrefNextWeek}, "2025-08-07", now))
	// Same day named via preference is not a pivot.
	assert.False(t, wantsDifferentDate(nlu.ParsedInput{DatePreference: nlu.DatePrefTomorrow}, "2025-08-07", now))
}

func TestMatchAppointmentType(t *testing.T) {
	configured := []string{"General Consultation", "Routine Checkup", "Follow-up Visit"}

	tests := []struct {
		name       string
		message    string
		parsedType string
		want       string
	}{
		{"exact from parser", "", "Routine Checkup", "Routine Checkup"},
		{"exact case-insensitive", "routine checkup", "", "Routine Checkup"},
		{"type inside message", "I'd like a general consultation please", "", "General Consultation"},
		{"message inside type", "consultation", "", "General Consultation"},
		{"alias checkup", "just a checkup", "", "Routine Checkup"},
		{"alias follow", "it's a follow up", "", "Follow-up Visit"},
		{"no match", "haircut", "", ""},
		{"short fragment rejected", "up", "", ""},
		{"two alias keywords resolve by alias order", "a general checkup please", "", "Routine Checkup"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchAppointmentType(tc.message, tc.parsedType, configured))
		})
	}
}

func TestParseDelimitedInfo(t *testing.T) {
	t.Run("full line", func(t *testing.T) {
		got := parseDelimitedInfo("John Smith, 987-654-3210, john@email.com, 30")
		assert.Equal(t, "John Smith", got.Name)
		assert.Equal(t, "9876543210", got.Phone)
		assert.Equal(t, "john@email.com", got.Email)
		assert.Equal(t, 30, got.Age)
	})

	t.Run("order beyond name does not matter", func(t *testing.T) {
		got := parseDelimitedInfo("Jane Doe, jane@email.com, 42, 5551234567")
		assert.Equal(t, "Jane Doe", got.Name)
		assert.Equal(t, "5551234567", got.Phone)
		assert.Equal(t, "jane@email.com", got.Email)
		assert.Equal(t, 42, got.Age)
	})

	t.Run("too few parts", func(t *testing.T) {
		assert.Equal(t, nlu.Extraction{}, parseDelimitedInfo("John Smith, 9876543210"))
	})
}

func TestAffirmativeAndNegative(t *testing.T) {
	for _, msg := range []string{"yes", "Yes!", "yep, book it", "sounds good", "ok"} {
		assert.True(t, isAffirmative(msg), msg)
	}
	for _, msg := range []string{"no", "nope", "that's wrong", "no, change the time"} {
		assert.True(t, isNegative(msg), msg)
		assert.False(t, isAffirmative(msg), msg)
	}
	// Plain statements are neither.
	assert.False(t, isAffirmative("what about parking"))
	assert.False(t, isNegative("what about parking"))
}

func TestMentionsEmergency(t *testing.T) {
	assert.True(t, mentionsEmergency("I have severe chest pain"))
	assert.True(t, mentionsEmergency("this is an emergency"))
	assert.False(t, mentionsEmergency("just a routine visit"))
}

func TestLooksLikeBareName(t *testing.T) {
	accepted := []string{"Jane Doe", "John", "Mary Anne Smith"}
	for _, msg := range accepted {
		assert.True(t, looksLikeBareName(msg), msg)
	}
	rejected := []string{"ok sure", "yes please", "what", "no thanks", "hello there", "maybe later", "730"}
	for _, msg := range rejected {
		assert.False(t, looksLikeBareName(msg), msg)
	}
}

func TestFilterSlotsByCategory(t *testing.T) {
	slots := offeredSlots()
	evening := filterSlotsByCategory(slots, "evening")
	require.Len(t, evening, 1)
	assert.Equal(t, "7:30 PM", evening[0].Time)
	// A period with no slots falls back to the full list.
	assert.Len(t, filterSlotsByCategory(slots[:1], "evening"), 1)
	assert.Len(t, filterSlotsByCategory(slots, ""), 3)
}
