package nlu

import (
	"fmt"
	"strings"
	"time"

	"github.com/schedchat/schedchat/internal/ollama"
	"github.com/schedchat/schedchat/internal/slots"
)

// Prompt builders for each gateway operation. Every prompt demands a single
// JSON object conforming to the schema sent with the request; the schemas
// below mirror what the parsing side expects.

const slotShapeHint = `Slot fields:
- title: short imperative title, e.g. "Call John"
- description: extra detail beyond the title, or empty
- scheduleType: "one-day", "routine", or "specific-days"
- startDateISO: absolute RFC3339 timestamp resolved against the current time
- scheduleDays: weekday codes from [SU,MO,TU,WE,TH,FR,SA]
- scheduleTime: {"fixedTime":"HH:MM"} or {"minutesBeforeStart":N}, never both
- isRoutine: true when the item recurs
- duration: meeting length in minutes`

const intentSystemPrompt = `You are an intent detection engine for a scheduling assistant. Classify the user's message and extract scheduling slots. Your output must be ONLY a single valid JSON object conforming to the provided schema.

Intents:
- "task": user wants a to-do or reminder created
- "meeting": user wants a meeting scheduled
- "none": the message is not asking to create anything

Rules:
- confidence is an integer 0-100; below 50 means you are not sure any action was requested.
- Resolve relative dates ("tomorrow", "next Friday") against the current time into startDateISO.
- Fill only slots actually present in the message; leave the rest empty.`

func intentPrompt(message string, now time.Time) []ollama.Message {
	var sb strings.Builder
	sb.WriteString(intentSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(slotShapeHint)
	fmt.Fprintf(&sb, "\n\nCurrent time: %s", now.UTC().Format(time.RFC3339))

	return []ollama.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: message},
	}
}

func intentSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"intent":     {Type: "string", Description: "One of: task, meeting, none"},
			"data":       {Type: "object", Description: "Partial slot set extracted from the message"},
			"confidence": {Type: "integer", Description: "0-100 confidence that an action was requested"},
		},
		Required: []string{"intent", "data", "confidence"},
	}
}

const extractionSystemPrompt = `You are a slot extraction engine for a scheduling assistant. The user was asked to supply specific missing fields. Extract ONLY those fields from the reply. Your output must be ONLY a single valid JSON object conforming to the provided schema.

Rules:
- Do not invent values; leave a field empty if the reply does not supply it.
- Resolve relative dates against the current time into startDateISO.`

func extractionPrompt(message string, missing []string, existing slots.SlotSet, now time.Time) []ollama.Message {
	var sb strings.Builder
	sb.WriteString(extractionSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(slotShapeHint)
	fmt.Fprintf(&sb, "\n\nCurrent time: %s", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "\nMissing fields to extract: %s", strings.Join(missing, ", "))
	if existing.Title != "" {
		fmt.Fprintf(&sb, "\nAlready known title: %q", existing.Title)
	}
	if existing.StartDateISO != "" {
		fmt.Fprintf(&sb, "\nAlready known start date: %s", existing.StartDateISO)
	}

	return []ollama.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: message},
	}
}

func extractionSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"extractedData": {Type: "object", Description: "Partial slot set holding only the requested fields"},
		},
		Required: []string{"extractedData"},
	}
}

const confirmationSystemPrompt = `You are classifying the user's reply to a confirmation summary of a pending scheduling action. Your output must be ONLY a single valid JSON object conforming to the provided schema.

Intents:
- "confirm": the user agrees to proceed (yes, go ahead, sounds good)
- "reject": the user cancels (no, never mind, cancel)
- "modify": the user wants a change ("make it 6pm instead") — put the changed fields in modifications
- "unclear": the reply answers neither way

Rules:
- confidence is an integer 0-100.
- modifications holds only the fields the user changed, resolved against the pending data and current time.`

func confirmationPrompt(message string, data slots.SlotSet, action slots.ActionType, now time.Time) []ollama.Message {
	var sb strings.Builder
	sb.WriteString(confirmationSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(slotShapeHint)
	fmt.Fprintf(&sb, "\n\nCurrent time: %s", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "\nPending action: %s", action)
	fmt.Fprintf(&sb, "\nPending data: title=%q startDateISO=%q scheduleType=%q", data.Title, data.StartDateISO, data.ScheduleType)

	return []ollama.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: message},
	}
}

func confirmationSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"intent":        {Type: "string", Description: "One of: confirm, reject, modify, unclear"},
			"modifications": {Type: "object", Description: "Changed slot fields when intent is modify"},
			"confidence":    {Type: "integer", Description: "0-100 confidence"},
		},
		Required: []string{"intent", "modifications", "confidence"},
	}
}

const routineSystemPrompt = `You decide whether a task sounds like something the user does repeatedly (a routine) rather than once. Your output must be ONLY a single valid JSON object conforming to the provided schema.

Rules:
- likelyRoutine is true for habits and recurring chores (exercise, medication, standups), false for one-off errands.
- question is a short yes/no question offering to make the task recurring, phrased around the task title.`

func routinePrompt(title, description string) []ollama.Message {
	var sb strings.Builder
	sb.WriteString("Task title: ")
	sb.WriteString(title)
	if description != "" && description != title {
		sb.WriteString("\nDescription: ")
		sb.WriteString(description)
	}

	return []ollama.Message{
		{Role: "system", Content: routineSystemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

func routineSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"likelyRoutine": {Type: "boolean", Description: "Whether the task looks recurring"},
			"confidence":    {Type: "integer", Description: "0-100 confidence"},
			"question":      {Type: "string", Description: "Yes/no question offering to make it recurring"},
		},
		Required: []string{"likelyRoutine", "confidence", "question"},
	}
}

const scheduleChoiceSystemPrompt = `The user was asked whether a routine should run daily or on specific days. Classify the reply. Your output must be ONLY a single valid JSON object conforming to the provided schema.

Rules:
- scheduleType is "daily", "specific-days", or "unclear".
- If the reply names weekdays, set scheduleType to "specific-days" and list them as codes from [SU,MO,TU,WE,TH,FR,SA].`

func scheduleChoicePrompt(message string) []ollama.Message {
	return []ollama.Message{
		{Role: "system", Content: scheduleChoiceSystemPrompt},
		{Role: "user", Content: message},
	}
}

func scheduleChoiceSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"scheduleType": {Type: "string", Description: "One of: daily, specific-days, unclear"},
			"days":         {Type: "array", Description: "Weekday codes named in the reply"},
		},
		Required: []string{"scheduleType", "days"},
	}
}

const dayExtractionSystemPrompt = `Extract the weekdays mentioned in the user's message as codes from [SU,MO,TU,WE,TH,FR,SA]. "weekdays" means MO-FR, "weekends" means SA and SU. Your output must be ONLY a single valid JSON object conforming to the provided schema. Return an empty list when no days are mentioned.`

func dayExtractionPrompt(message string) []ollama.Message {
	return []ollama.Message{
		{Role: "system", Content: dayExtractionSystemPrompt},
		{Role: "user", Content: message},
	}
}

func dayExtractionSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"days": {Type: "array", Description: "Weekday codes mentioned in the message"},
		},
		Required: []string{"days"},
	}
}
