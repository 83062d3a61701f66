package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carelane/clinic-concierge/internal/booking"
	"github.com/carelane/clinic-concierge/internal/clinic"
	"github.com/carelane/clinic-concierge/internal/nlu"
	"github.com/carelane/clinic-concierge/internal/observability/metrics"
	"github.com/carelane/clinic-concierge/internal/schedule"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

// ErrInvalidRequest is returned for requests missing a session id or message.
var ErrInvalidRequest = errors.New("conversation: session id and message are required")

// Gateway is the persistence boundary the engine books through.
type Gateway interface {
	AppointmentsForDate(ctx context.Context, date string) ([]booking.Appointment, error)
	IsSlotBooked(ctx context.Context, date, timeLabel string) (bool, error)
	FindPatientByPhoneOrName(ctx context.Context, phone, name string) (*booking.Patient, error)
	CreateAppointment(ctx context.Context, draft booking.Draft) (*booking.Appointment, error)
}

// SettingsSource provides the clinic's appointment configuration.
type SettingsSource interface {
	Settings(ctx context.Context) (*clinic.Settings, error)
}

// MessageParser turns one raw message into structured input.
type MessageParser interface {
	Parse(ctx context.Context, message, phase string) nlu.ParsedInput
}

// TranscriptSink records turns durably, best effort.
type TranscriptSink interface {
	RecordTurn(ctx context.Context, sessionID, role, content string)
}

// Request is one inbound user turn. UserID is the caller's own account
// identifier, carried through to logs and traces only.
type Request struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	PatientPhone string `json:"patient_phone,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// Response is the engine's answer for one turn.
type Response struct {
	SessionID      string               `json:"session_id"`
	Message        string               `json:"message"`
	Phase          Phase                `json:"phase"`
	AvailableSlots []schedule.TimeSlot  `json:"available_slots,omitempty"`
	ReadyToBook    bool                 `json:"ready_to_book,omitempty"`
	BookingData    *BookingDraft        `json:"booking_data,omitempty"`
	Appointment    *booking.Appointment `json:"appointment,omitempty"`
}

// Engine drives the booking dialog. One instance serves all sessions; all
// per-session state lives in the store.
type Engine struct {
	parser     MessageParser
	gateway    Gateway
	settings   SettingsSource
	store      *SessionStore
	transcript TranscriptSink
	logger     *logging.Logger
	metrics    *metrics.ConversationMetrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewEngine(parser MessageParser, gateway Gateway, settings SettingsSource, store *SessionStore,
	transcript TranscriptSink, logger *logging.Logger, m *metrics.ConversationMetrics) *Engine {
	if parser == nil {
		panic("conversation: parser is required")
	}
	if gateway == nil {
		panic("conversation: gateway is required")
	}
	if settings == nil {
		panic("conversation: settings source is required")
	}
	if store == nil {
		panic("conversation: session store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		parser:     parser,
		gateway:    gateway,
		settings:   settings,
		store:      store,
		transcript: transcript,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("concierge.internal.conversation"),
		now:        time.Now,
	}
}

// turn bundles everything one message's handlers read and write.
type turn struct {
	state    *ConversationState
	settings *clinic.Settings
	message  string
	parsed   nlu.ParsedInput
	reply    string
	booked   *booking.Appointment
}

// ProcessMessage runs one full turn: load state, parse, route by phase,
// persist, answer. A panic anywhere in the turn is contained; the session is
// reset to GREETING and the user gets an apology instead of a 500.
func (e *Engine) ProcessMessage(ctx context.Context, req Request) (resp *Response, err error) {
	message := strings.TrimSpace(req.Message)
	if req.SessionID == "" || message == "" {
		return nil, ErrInvalidRequest
	}

	ctx, span := e.tracer.Start(ctx, "conversation.process_message")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.session_id", req.SessionID))
	if req.UserID != "" {
		span.SetAttributes(attribute.String("concierge.user_id", req.UserID))
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during conversation turn",
				"session_id", req.SessionID, "panic", r)
			fresh := NewConversationState(req.SessionID, e.now())
			fresh.Phase = PhaseGreeting
			_ = e.store.Save(ctx, fresh)
			resp = &Response{
				SessionID: req.SessionID,
				Message:   apologyReply(),
				Phase:     PhaseGreeting,
			}
			err = nil
		}
	}()

	state, err := e.store.Load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = NewConversationState(req.SessionID, e.now())
	}

	// A finished session rolls into a fresh booking, keeping the patient's
	// identity so we do not ask who they are twice.
	if state.Phase == PhaseCompleted {
		state.ResetDraft(true)
		state.Phase = PhaseGreeting
	}

	state.AppendMessage("user", message, e.now())
	e.recordTranscript(ctx, state.SessionID, "user", message)

	if state.Draft.PatientPhone == "" && validPhone(digitsOnly(req.PatientPhone)) {
		state.Draft.PatientPhone = digitsOnly(req.PatientPhone)
	}

	parsed := e.parser.Parse(ctx, message, string(state.Phase))
	e.metrics.ObserveTurn(string(state.Phase), string(parsed.Intent))

	t := &turn{state: state, message: message, parsed: parsed}
	e.mergeExtractedFields(t)

	if parsed.Intent == nlu.IntentCancel {
		return e.finishTurn(ctx, t, func() {
			t.state.ResetDraft(false)
			t.state.Phase = PhaseGreeting
			t.reply = cancelledReply()
		})
	}

	if parsed.IsEmergency || parsed.Intent == nlu.IntentEmergency || mentionsEmergency(message) {
		state.Draft.IsEmergency = true
	}

	settings, serr := e.settings.Settings(ctx)
	if serr != nil || settings.Validate() != nil {
		e.logger.Error("clinic settings unavailable", "error", serr)
		return e.finishTurn(ctx, t, func() {
			t.state.ResetDraft(false)
			t.state.Phase = PhaseGreeting
			t.reply = configErrorReply()
		})
	}
	t.settings = settings
	e.mergeAppointmentType(t)

	var herr error
	switch state.Phase {
	case PhaseGreeting:
		herr = e.handleGreeting(ctx, t)
	case PhaseAskingDate:
		herr = e.handleAskingDate(ctx, t)
	case PhaseShowingSlots:
		herr = e.handleShowingSlots(ctx, t)
	case PhaseAskingType:
		herr = e.handleAskingType(ctx, t)
	case PhaseCollectingInfo:
		herr = e.handleCollectingInfo(ctx, t)
	case PhaseConfirming:
		herr = e.handleConfirming(ctx, t)
	default:
		state.Phase = PhaseGreeting
		herr = e.handleGreeting(ctx, t)
	}
	if herr != nil {
		span.RecordError(herr)
		return nil, herr
	}

	return e.finishTurn(ctx, t, nil)
}

// finishTurn applies an optional final mutation, persists the state, and
// builds the response.
func (e *Engine) finishTurn(ctx context.Context, t *turn, mutate func()) (*Response, error) {
	if mutate != nil {
		mutate()
	}
	now := e.now()
	t.state.AppendMessage("assistant", t.reply, now)
	t.state.LastActivity = now
	if err := e.store.Save(ctx, t.state); err != nil {
		return nil, err
	}
	e.recordTranscript(ctx, t.state.SessionID, "assistant", t.reply)

	resp := &Response{
		SessionID: t.state.SessionID,
		Message:   t.reply,
		Phase:     t.state.Phase,
	}
	if t.state.Phase == PhaseShowingSlots {
		resp.AvailableSlots = t.state.AvailableSlots
	}
	if t.booked != nil {
		resp.ReadyToBook = true
		resp.Appointment = t.booked
		draft := t.state.Draft
		resp.BookingData = &draft
	}
	return resp, nil
}

func (e *Engine) recordTranscript(ctx context.Context, sessionID, role, content string) {
	if e.transcript != nil {
		e.transcript.RecordTurn(ctx, sessionID, role, content)
	}
}

// mergeExtractedFields fills empty draft fields from the parse, with the
// deterministic extractor as backstop. Fields only ever fill; they are
// cleared solely by explicit restart or staleness.
func (e *Engine) mergeExtractedFields(t *turn) {
	d := &t.state.Draft
	ext := nlu.Extract(t.message)

	if d.PatientName == "" {
		if t.parsed.PatientName != "" && nlu.LooksLikeName(t.parsed.PatientName) {
			d.PatientName = strings.TrimSpace(t.parsed.PatientName)
		} else if ext.Name != "" {
			d.PatientName = ext.Name
			e.metrics.ObserveFallbackExtraction("name")
		}
	}
	if d.PatientPhone == "" {
		if validPhone(t.parsed.PatientPhone) {
			d.PatientPhone = t.parsed.PatientPhone
		} else if ext.Phone != "" {
			d.PatientPhone = ext.Phone
			e.metrics.ObserveFallbackExtraction("phone")
		}
	}
	if d.PatientEmail == "" {
		if validEmail(t.parsed.PatientEmail) {
			d.PatientEmail = t.parsed.PatientEmail
		} else if ext.Email != "" {
			d.PatientEmail = ext.Email
			e.metrics.ObserveFallbackExtraction("email")
		}
	}
	if d.PatientAge == 0 {
		if validAge(t.parsed.PatientAge) {
			d.PatientAge = t.parsed.PatientAge
		} else if ext.Age != 0 {
			d.PatientAge = ext.Age
			e.metrics.ObserveFallbackExtraction("age")
		}
	}
	if d.DoctorPreference == "" && t.parsed.DoctorPreference != "" {
		d.DoctorPreference = strings.TrimSpace(t.parsed.DoctorPreference)
	}
}

// mergeAppointmentType accepts the parsed type only when it resolves against
// the configured list; a hallucinated type never enters the draft.
func (e *Engine) mergeAppointmentType(t *turn) {
	if t.state.Draft.AppointmentType != "" || t.parsed.AppointmentType == "" {
		return
	}
	if matched := matchAppointmentType("", t.parsed.AppointmentType, t.settings.AppointmentTypes); matched != "" {
		t.state.Draft.AppointmentType = matched
	}
}

// --- phase handlers ---

func (e *Engine) handleGreeting(ctx context.Context, t *turn) error {
	wantsBooking := t.parsed.Intent == nlu.IntentBooking ||
		t.parsed.Intent == nlu.IntentEmergency ||
		t.parsed.IsCompleteRequest ||
		t.parsed.ExtractedDate != "" || t.parsed.DatePreference != "" ||
		t.parsed.ExtractedTime != "" ||
		t.state.Draft.IsEmergency

	if !wantsBooking {
		t.reply = greetingReply()
		return nil
	}
	return e.advanceWithDate(ctx, t, true)
}

func (e *Engine) handleAskingDate(ctx context.Context, t *turn) error {
	return e.advanceWithDate(ctx, t, false)
}

// advanceWithDate resolves the turn's date utterance and moves the dialog as
// far forward as the message allows. When the message carried a time too, the
// slot is matched in the same turn (the one-shot booking path).
func (e *Engine) advanceWithDate(ctx context.Context, t *turn, fromGreeting bool) error {
	resolved := resolveDate(t.parsed, e.now())

	switch {
	case resolved.past:
		t.state.Phase = PhaseAskingDate
		t.reply = pastDateReply()
		return nil
	case !resolved.present:
		t.state.Phase = PhaseAskingDate
		t.reply = askDateReply(t.state.Draft.IsEmergency)
		return nil
	}

	if resolved.date == "" {
		// Windowed preference: probe the window for the first open day.
		date, slots, err := e.firstDateWithSlots(ctx, t, resolved.from, resolved.to)
		if err != nil {
			return err
		}
		if date == "" {
			t.state.Phase = PhaseAskingDate
			t.reply = noSlotsInWindowReply()
			return nil
		}
		t.state.Draft.SelectedDate = date
		return e.presentSlots(t, slots, "")
	}

	if days := t.settings.AdvanceDays; days > 0 {
		limit := e.now().AddDate(0, 0, days).Format(schedule.DateLayout)
		if resolved.date > limit {
			t.state.Phase = PhaseAskingDate
			t.reply = tooFarAheadReply(days)
			return nil
		}
	}

	slots, err := e.slotsForDate(ctx, t, resolved.date, t.parsed.TimePreference)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		t.state.Phase = PhaseAskingDate
		t.reply = noSlotsReply(resolved.date)
		return nil
	}
	t.state.Draft.SelectedDate = resolved.date

	// One-shot path: the same message named a time.
	if t.parsed.ExtractedTime != "" {
		if slot := matchSlot(t.message, t.parsed, slots); slot != nil {
			taken, err := e.gateway.IsSlotBooked(ctx, slot.Date, slot.Time)
			if err != nil {
				return err
			}
			if !taken {
				t.state.Draft.SelectedTime = slot.Time
				if fromGreeting {
					return e.nextAfterSlotFast(t)
				}
				return e.nextAfterSlotStepwise(t)
			}
		}
		return e.presentSlots(t, slots,
			"I'm sorry, that exact time isn't available. Here's what is open on "+displayDate(resolved.date)+":")
	}
	return e.presentSlots(t, slots, "")
}

func (e *Engine) handleShowingSlots(ctx context.Context, t *turn) error {
	if wantsDifferentDate(t.parsed, t.state.Draft.SelectedDate, e.now()) {
		t.state.Draft.SelectedDate = ""
		t.state.Draft.SelectedTime = ""
		t.state.AvailableSlots = nil
		return e.advanceWithDate(ctx, t, false)
	}

	slot := matchSlot(t.message, t.parsed, t.state.AvailableSlots)
	if slot == nil {
		if t.parsed.TimePreference != "" {
			// Narrow the standing offer; the day's slots are already loaded.
			narrowed := filterSlotsByCategory(t.state.AvailableSlots, t.parsed.TimePreference)
			return e.presentSlots(t, narrowed, "")
		}
		t.reply = slotListReply("I didn't catch a time there. These are the open times:", t.state.AvailableSlots)
		return nil
	}

	taken, err := e.gateway.IsSlotBooked(ctx, slot.Date, slot.Time)
	if err != nil {
		return err
	}
	if taken {
		e.metrics.ObserveSlotConflict()
		slots, err := e.slotsForDate(ctx, t, t.state.Draft.SelectedDate, "")
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			t.state.Draft.SelectedDate = ""
			t.state.Phase = PhaseAskingDate
			t.reply = noSlotsReply(slot.Date)
			return nil
		}
		t.state.AvailableSlots = slots
		t.reply = slotConflictReply(slots)
		return nil
	}

	t.state.Draft.SelectedTime = slot.Time
	return e.nextAfterSlotStepwise(t)
}

func (e *Engine) handleAskingType(ctx context.Context, t *turn) error {
	matched := matchAppointmentType(t.message, t.parsed.AppointmentType, t.settings.AppointmentTypes)
	if matched == "" && t.state.Draft.AppointmentType == "" {
		t.reply = typeListReply(t.settings.AppointmentTypes)
		return nil
	}
	if matched != "" {
		t.state.Draft.AppointmentType = matched
	}
	if missing := missingInfoFields(t.state.Draft); len(missing) > 0 {
		t.state.Phase = PhaseCollectingInfo
		t.reply = missingInfoReply(missing)
		return nil
	}
	return e.reconcileAndConfirm(ctx, t)
}

func (e *Engine) handleCollectingInfo(ctx context.Context, t *turn) error {
	d := &t.state.Draft

	if info := parseDelimitedInfo(t.message); info != (nlu.Extraction{}) {
		if d.PatientName == "" && info.Name != "" {
			d.PatientName = info.Name
		}
		if d.PatientPhone == "" && info.Phone != "" {
			d.PatientPhone = info.Phone
		}
		if d.PatientEmail == "" && info.Email != "" {
			d.PatientEmail = info.Email
		}
		if d.PatientAge == 0 && info.Age != 0 {
			d.PatientAge = info.Age
		}
	}

	// When we are explicitly waiting on a name, a bare "Jane Doe" counts.
	// Fillers like "ok sure" never do; a wrong name would stick until commit.
	if d.PatientName == "" &&
		t.parsed.Intent != nlu.IntentConfirmation && t.parsed.Intent != nlu.IntentDenial &&
		looksLikeBareName(t.message) {
		d.PatientName = strings.TrimSpace(t.message)
	}

	// Returning patients may be missing email or age in this session; their
	// record can fill the gap before we nag for it.
	e.reconcilePatient(ctx, t)

	if missing := missingInfoFields(*d); len(missing) > 0 {
		t.reply = missingInfoReply(missing)
		return nil
	}
	if d.AppointmentType == "" {
		t.state.Phase = PhaseAskingType
		t.reply = typeListReply(t.settings.AppointmentTypes)
		return nil
	}
	return e.reconcileAndConfirm(ctx, t)
}

func (e *Engine) handleConfirming(ctx context.Context, t *turn) error {
	switch {
	case t.parsed.Intent == nlu.IntentDenial || isNegative(t.message):
		t.state.ResetDraft(false)
		t.state.Phase = PhaseAskingDate
		t.reply = restartReply()
		return nil
	case t.parsed.Intent == nlu.IntentConfirmation || isAffirmative(t.message):
		return e.commitBooking(ctx, t)
	default:
		t.reply = confirmNudgeReply()
		return nil
	}
}

// --- flow helpers ---

// nextAfterSlotFast is the one-shot ordering: a caller who named date and time
// up front gets asked who they are before what kind of visit it is.
func (e *Engine) nextAfterSlotFast(t *turn) error {
	if missing := missingInfoFields(t.state.Draft); len(missing) > 0 {
		t.state.Phase = PhaseCollectingInfo
		t.reply = missingInfoReply(missing)
		return nil
	}
	if t.state.Draft.AppointmentType == "" {
		t.state.Phase = PhaseAskingType
		t.reply = typeListReply(t.settings.AppointmentTypes)
		return nil
	}
	t.state.Phase = PhaseConfirming
	t.reply = summaryReply(t.state.Draft)
	return nil
}

// nextAfterSlotStepwise is the guided ordering: visit type first, then
// patient details.
func (e *Engine) nextAfterSlotStepwise(t *turn) error {
	if t.state.Draft.AppointmentType == "" {
		t.state.Phase = PhaseAskingType
		t.reply = typeListReply(t.settings.AppointmentTypes)
		return nil
	}
	if missing := missingInfoFields(t.state.Draft); len(missing) > 0 {
		t.state.Phase = PhaseCollectingInfo
		t.reply = missingInfoReply(missing)
		return nil
	}
	t.state.Phase = PhaseConfirming
	t.reply = summaryReply(t.state.Draft)
	return nil
}

// reconcileAndConfirm resolves the draft against existing patient records,
// then moves to confirmation.
func (e *Engine) reconcileAndConfirm(ctx context.Context, t *turn) error {
	e.reconcilePatient(ctx, t)
	t.state.Phase = PhaseConfirming
	t.reply = summaryReply(t.state.Draft)
	return nil
}

// reconcilePatient links the draft to an existing patient record when phone
// and name agree. A phone that maps to a different name is treated as a new
// patient, never a silent takeover of the existing record.
func (e *Engine) reconcilePatient(ctx context.Context, t *turn) {
	d := &t.state.Draft
	if d.PatientPhone == "" || d.PatientName == "" {
		return
	}
	patient, err := e.gateway.FindPatientByPhoneOrName(ctx, d.PatientPhone, d.PatientName)
	if err != nil {
		e.logger.Warn("patient lookup failed, continuing as new patient",
			"session_id", t.state.SessionID, "error", err)
		return
	}
	if patient == nil {
		return
	}
	if strings.EqualFold(strings.TrimSpace(patient.Name), strings.TrimSpace(d.PatientName)) {
		id := patient.ID
		d.ExistingPatientRef = &id
		if d.PatientEmail == "" && validEmail(patient.Email) {
			d.PatientEmail = patient.Email
		}
		if d.PatientAge == 0 && validAge(patient.Age) {
			d.PatientAge = patient.Age
		}
		return
	}
	d.ExistingPatientRef = nil
}

// commitBooking runs the hard revalidation, the live slot check, and the
// atomic commit. No draft reaches COMPLETED without passing every check here,
// whatever path filled it.
func (e *Engine) commitBooking(ctx context.Context, t *turn) error {
	d := &t.state.Draft

	if d.SelectedDate == "" || d.SelectedDate < e.now().Format(schedule.DateLayout) || d.SelectedTime == "" {
		d.SelectedDate = ""
		d.SelectedTime = ""
		t.state.AvailableSlots = nil
		t.state.Phase = PhaseAskingDate
		t.reply = askDateReply(d.IsEmergency)
		return nil
	}
	if matchAppointmentType("", d.AppointmentType, t.settings.AppointmentTypes) == "" {
		d.AppointmentType = ""
		t.state.Phase = PhaseAskingType
		t.reply = typeListReply(t.settings.AppointmentTypes)
		return nil
	}
	if missing := missingInfoFields(*d); len(missing) > 0 {
		t.state.Phase = PhaseCollectingInfo
		t.reply = missingInfoReply(missing)
		return nil
	}

	taken, err := e.gateway.IsSlotBooked(ctx, d.SelectedDate, d.SelectedTime)
	if err != nil {
		return err
	}
	if taken {
		e.metrics.ObserveSlotConflict()
		return e.recoverFromConflict(ctx, t)
	}

	appt, err := e.gateway.CreateAppointment(ctx, booking.Draft{
		Date:              d.SelectedDate,
		Time:              d.SelectedTime,
		AppointmentType:   d.AppointmentType,
		PatientName:       d.PatientName,
		PatientPhone:      d.PatientPhone,
		PatientEmail:      d.PatientEmail,
		PatientAge:        d.PatientAge,
		DoctorPreference:  d.DoctorPreference,
		IsEmergency:       d.IsEmergency,
		ExistingPatientID: d.ExistingPatientRef,
	})
	if errors.Is(err, booking.ErrSlotTaken) {
		return e.recoverFromConflict(ctx, t)
	}
	if err != nil {
		e.logger.Error("booking commit failed", "session_id", t.state.SessionID, "error", err)
		t.reply = commitErrorReply()
		return nil
	}

	t.state.Phase = PhaseCompleted
	t.booked = appt
	t.reply = confirmationReply(*appt)
	return nil
}

// recoverFromConflict replaces the stale snapshot with fresh alternatives and
// sends the dialog back to time selection. The chosen time is cleared; the
// date and everything else collected survives.
func (e *Engine) recoverFromConflict(ctx context.Context, t *turn) error {
	d := &t.state.Draft
	lostTime := d.SelectedTime
	d.SelectedTime = ""

	slots, err := e.slotsForDate(ctx, t, d.SelectedDate, "")
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		d.SelectedDate = ""
		t.state.AvailableSlots = nil
		t.state.Phase = PhaseAskingDate
		t.reply = "I'm sorry, " + lostTime + " was just booked and that day is now full. " +
			"Would another day work for you?"
		return nil
	}
	t.state.AvailableSlots = slots
	t.state.Phase = PhaseShowingSlots
	t.reply = slotConflictReply(slots)
	return nil
}

func (e *Engine) presentSlots(t *turn, slots []schedule.TimeSlot, intro string) error {
	t.state.AvailableSlots = slots
	t.state.Phase = PhaseShowingSlots
	t.reply = slotListReply(intro, slots)
	return nil
}

// slotsForDate regenerates the bookable slots for a date from live data.
func (e *Engine) slotsForDate(ctx context.Context, t *turn, date, pref string) ([]schedule.TimeSlot, error) {
	appts, err := e.gateway.AppointmentsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	existing := make([]schedule.BookedSlot, 0, len(appts))
	for _, a := range appts {
		existing = append(existing, schedule.BookedSlot{Time: a.Time, Status: a.Status})
	}
	return schedule.Generate(date, existing, t.settings, e.now(), pref), nil
}

// firstDateWithSlots walks a date window and returns the first open day.
func (e *Engine) firstDateWithSlots(ctx context.Context, t *turn, from, to string) (string, []schedule.TimeSlot, error) {
	day, err := time.Parse(schedule.DateLayout, from)
	if err != nil {
		return "", nil, nil
	}
	for {
		date := day.Format(schedule.DateLayout)
		if date > to {
			return "", nil, nil
		}
		slots, err := e.slotsForDate(ctx, t, date, t.parsed.TimePreference)
		if err != nil {
			return "", nil, err
		}
		if len(slots) > 0 {
			return date, slots, nil
		}
		day = day.AddDate(0, 0, 1)
	}
}

// --- validation ---

func missingInfoFields(d BookingDraft) []string {
	var missing []string
	if strings.TrimSpace(d.PatientName) == "" {
		missing = append(missing, "full name")
	}
	if !validPhone(d.PatientPhone) {
		missing = append(missing, "10-digit phone number")
	}
	if !validEmail(d.PatientEmail) {
		missing = append(missing, "email address")
	}
	if !validAge(d.PatientAge) {
		missing = append(missing, "age")
	}
	return missing
}

func validPhone(phone string) bool {
	return len(phone) == 10 && digitsOnly(phone) == phone
}

func validEmail(email string) bool {
	return email != "" && nlu.ExtractEmail(email) == email
}

func validAge(age int) bool {
	return age >= 1 && age <= 120
}
