// Package nlu is the gateway between free-text chat turns and the structured
// results the dialogue layer consumes. Every operation sends a prompt to the
// local LLM with a JSON schema constraint, validates the payload into a typed
// result, and surfaces anything malformed as a *GatewayError so call sites
// can apply their own fallback.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/schedchat/schedchat/internal/ollama"
	"github.com/schedchat/schedchat/internal/slots"
)

// ConfidenceThreshold is the minimum 0-100 confidence for a detected intent
// to be acted on; anything below is treated as no intent.
const ConfidenceThreshold = 50

const defaultCallTimeout = 10 * time.Second

// Chatter is the LLM chat interface the gateway depends on.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// GatewayError wraps any failure at the gateway boundary: transport errors,
// non-JSON output, or schema-mismatched payloads.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("nlu %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Gateway converts user messages into structured dialogue inputs.
type Gateway struct {
	client  Chatter
	model   string
	timeout time.Duration
	now     func() time.Time
}

// NewGateway creates a Gateway using the given chat client and model name.
// A non-positive timeout falls back to 10s per call.
func NewGateway(client Chatter, model string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Gateway{
		client:  client,
		model:   model,
		timeout: timeout,
		now:     time.Now,
	}
}

// SetNow overrides the clock used to anchor relative dates. Tests use this
// to make date resolution deterministic.
func (g *Gateway) SetNow(now func() time.Time) {
	g.now = now
}

// call runs one structured chat round trip and unmarshals the payload into v.
func (g *Gateway) call(ctx context.Context, op string, messages []ollama.Message, schema *ollama.Schema, v any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.client.Chat(ctx, g.model, messages, schema)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), v); err != nil {
		return &GatewayError{Op: op, Err: fmt.Errorf("malformed payload %q: %w", raw, err)}
	}
	return nil
}

// extractJSONObject trims any stray prose around the first JSON object in
// the model output. Returns the input unchanged when no braces are found so
// the unmarshal error carries the original text.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

// Intent classifies what the user wants to start.
type Intent string

const (
	IntentTask    Intent = "task"
	IntentMeeting Intent = "meeting"
	IntentNone    Intent = "none"
)

// ActionType maps a detected intent to the slot action it starts.
func (i Intent) ActionType() slots.ActionType {
	if i == IntentMeeting {
		return slots.ActionScheduleMeeting
	}
	return slots.ActionCreateTask
}

// IntentResult is the outcome of fresh intent detection on a raw message.
type IntentResult struct {
	Intent        Intent
	Data          slots.SlotSet
	MissingFields []string
	Confidence    int
}

// DetectIntent classifies a raw message as starting a task, a meeting, or
// nothing, extracting whatever initial slots are present. Confidence below
// ConfidenceThreshold is normalized to IntentNone.
func (g *Gateway) DetectIntent(ctx context.Context, message string) (IntentResult, error) {
	var payload struct {
		Intent     string      `json:"intent"`
		Data       slotPayload `json:"data"`
		Confidence int         `json:"confidence"`
	}
	if err := g.call(ctx, "intent detection", intentPrompt(message, g.now()), intentSchema(), &payload); err != nil {
		return IntentResult{}, err
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(payload.Intent)))
	switch intent {
	case IntentTask, IntentMeeting, IntentNone:
	default:
		return IntentResult{}, &GatewayError{Op: "intent detection", Err: fmt.Errorf("invalid intent %q", payload.Intent)}
	}
	if payload.Confidence < ConfidenceThreshold {
		intent = IntentNone
	}

	res := IntentResult{
		Intent:     intent,
		Data:       payload.Data.toSlotSet(),
		Confidence: payload.Confidence,
	}
	if intent != IntentNone {
		res.MissingFields = res.Data.MissingFields(intent.ActionType())
	}
	return res, nil
}

// ExtractionResult is the outcome of targeted field extraction.
type ExtractionResult struct {
	Extracted       slots.SlotSet
	AllFieldsFilled bool
	RemainingFields []string
}

// ExtractFields asks the model to pull only the named missing fields out of
// a follow-up message, given the data collected so far.
func (g *Gateway) ExtractFields(ctx context.Context, message string, missing []string, existing slots.SlotSet) (ExtractionResult, error) {
	var payload struct {
		ExtractedData slotPayload `json:"extractedData"`
	}
	if err := g.call(ctx, "field extraction", extractionPrompt(message, missing, existing, g.now()), extractionSchema(), &payload); err != nil {
		return ExtractionResult{}, err
	}

	res := ExtractionResult{Extracted: payload.ExtractedData.toSlotSet()}
	merged := existing
	merged.Merge(res.Extracted)
	res.RemainingFields = remainingOf(missing, merged)
	res.AllFieldsFilled = len(res.RemainingFields) == 0
	return res, nil
}

// remainingOf filters the requested missing fields down to those still
// absent after the merge.
func remainingOf(missing []string, merged slots.SlotSet) []string {
	var remaining []string
	for _, f := range missing {
		switch f {
		case slots.FieldTitle:
			if merged.Title == "" {
				remaining = append(remaining, f)
			}
		case slots.FieldStartDate:
			if merged.StartDateISO == "" && !merged.IsRecurring() {
				remaining = append(remaining, f)
			}
		}
	}
	return remaining
}

// ConfirmationIntent classifies the user's reply on a confirmation turn.
type ConfirmationIntent string

const (
	ConfirmationConfirm ConfirmationIntent = "confirm"
	ConfirmationReject  ConfirmationIntent = "reject"
	ConfirmationModify  ConfirmationIntent = "modify"
	ConfirmationUnclear ConfirmationIntent = "unclear"
)

// ConfirmationResult carries the classified reply plus any field-level
// modifications when the user asked for a change.
type ConfirmationResult struct {
	Intent        ConfirmationIntent
	Modifications slots.SlotSet
	Confidence    int
}

// ClassifyConfirmation interprets the reply to a rendered summary.
func (g *Gateway) ClassifyConfirmation(ctx context.Context, message string, data slots.SlotSet, action slots.ActionType) (ConfirmationResult, error) {
	var payload struct {
		Intent        string      `json:"intent"`
		Modifications slotPayload `json:"modifications"`
		Confidence    int         `json:"confidence"`
	}
	if err := g.call(ctx, "confirmation sentiment", confirmationPrompt(message, data, action, g.now()), confirmationSchema(), &payload); err != nil {
		return ConfirmationResult{}, err
	}

	intent := ConfirmationIntent(strings.ToLower(strings.TrimSpace(payload.Intent)))
	switch intent {
	case ConfirmationConfirm, ConfirmationReject, ConfirmationModify, ConfirmationUnclear:
	default:
		return ConfirmationResult{}, &GatewayError{Op: "confirmation sentiment", Err: fmt.Errorf("invalid intent %q", payload.Intent)}
	}

	return ConfirmationResult{
		Intent:        intent,
		Modifications: payload.Modifications.toSlotSet(),
		Confidence:    payload.Confidence,
	}, nil
}

// RoutineLikelihood is the outcome of the routine-eligibility check.
type RoutineLikelihood struct {
	LikelyRoutine bool
	Confidence    int
	Question      string
}

// CheckRoutineLikelihood decides whether a task looks like something the
// user does repeatedly, returning a tailored yes/no question to ask.
func (g *Gateway) CheckRoutineLikelihood(ctx context.Context, title, description string) (RoutineLikelihood, error) {
	var payload struct {
		LikelyRoutine bool   `json:"likelyRoutine"`
		Confidence    int    `json:"confidence"`
		Question      string `json:"question"`
	}
	if err := g.call(ctx, "routine likelihood", routinePrompt(title, description), routineSchema(), &payload); err != nil {
		return RoutineLikelihood{}, err
	}
	return RoutineLikelihood(payload), nil
}

// ScheduleChoice is the user's answer to "daily or specific days?".
type ScheduleChoice string

const (
	ChoiceDaily        ScheduleChoice = "daily"
	ChoiceSpecificDays ScheduleChoice = "specific-days"
	ChoiceUnclear      ScheduleChoice = "unclear"
)

// ScheduleChoiceResult carries the choice plus any days named in the same reply.
type ScheduleChoiceResult struct {
	Choice ScheduleChoice
	Days   []slots.DayCode
}

// ClassifyScheduleChoice interprets the reply to the daily/specific-days question.
func (g *Gateway) ClassifyScheduleChoice(ctx context.Context, message string) (ScheduleChoiceResult, error) {
	var payload struct {
		ScheduleType string   `json:"scheduleType"`
		Days         []string `json:"days"`
	}
	if err := g.call(ctx, "schedule choice", scheduleChoicePrompt(message), scheduleChoiceSchema(), &payload); err != nil {
		return ScheduleChoiceResult{}, err
	}

	choice := ScheduleChoice(strings.ToLower(strings.TrimSpace(payload.ScheduleType)))
	switch choice {
	case ChoiceDaily, ChoiceSpecificDays, ChoiceUnclear:
	default:
		return ScheduleChoiceResult{}, &GatewayError{Op: "schedule choice", Err: fmt.Errorf("invalid schedule type %q", payload.ScheduleType)}
	}

	return ScheduleChoiceResult{
		Choice: choice,
		Days:   slots.NormalizeDays(payload.Days),
	}, nil
}

// ExtractDays pulls weekday codes out of a free-text reply.
func (g *Gateway) ExtractDays(ctx context.Context, message string) ([]slots.DayCode, error) {
	var payload struct {
		Days []string `json:"days"`
	}
	if err := g.call(ctx, "day extraction", dayExtractionPrompt(message), dayExtractionSchema(), &payload); err != nil {
		return nil, err
	}
	return slots.NormalizeDays(payload.Days), nil
}

// slotPayload is the loosely-typed slot shape the model returns; it is
// validated and converted before anything downstream sees it.
type slotPayload struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ScheduleType string   `json:"scheduleType"`
	StartDateISO string   `json:"startDateISO"`
	ScheduleDays []string `json:"scheduleDays"`
	ScheduleTime *struct {
		FixedTime          string `json:"fixedTime"`
		MinutesBeforeStart int    `json:"minutesBeforeStart"`
	} `json:"scheduleTime"`
	IsRoutine bool `json:"isRoutine"`
	Duration  int  `json:"duration"`
}

func (p slotPayload) toSlotSet() slots.SlotSet {
	s := slots.SlotSet{
		Title:        strings.TrimSpace(p.Title),
		Description:  strings.TrimSpace(p.Description),
		StartDateISO: normalizeDate(p.StartDateISO),
		ScheduleDays: slots.NormalizeDays(p.ScheduleDays),
		IsRoutine:    p.IsRoutine,
	}
	switch slots.ScheduleType(strings.ToLower(strings.TrimSpace(p.ScheduleType))) {
	case slots.ScheduleOneDay:
		s.ScheduleType = slots.ScheduleOneDay
	case slots.ScheduleRoutine:
		s.ScheduleType = slots.ScheduleRoutine
		s.IsRoutine = true
	case slots.ScheduleSpecificDays:
		s.ScheduleType = slots.ScheduleSpecificDays
		s.IsRoutine = true
	}
	if p.ScheduleTime != nil && (p.ScheduleTime.FixedTime != "" || p.ScheduleTime.MinutesBeforeStart > 0) {
		s.ScheduleTime = &slots.ScheduleTime{
			FixedTime:          p.ScheduleTime.FixedTime,
			MinutesBeforeStart: p.ScheduleTime.MinutesBeforeStart,
		}
	}
	if p.Duration > 0 {
		s.DurationMinutes = p.Duration
	}
	return s
}

// normalizeDate keeps only parseable RFC3339 timestamps; anything else is
// dropped so a half-formed date never poisons the slot set.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		return ""
	}
	return raw
}
