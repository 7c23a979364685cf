// Package formatter turns any processor result into a well-formed
// ResponseEnvelope. It is the only place that knows about legacy field names.
package formatter

import (
	"fmt"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

// FallbackText is returned when the processor produced nothing usable.
const FallbackText = "I'm sorry, I'm having trouble processing your request right now. Please try again later."

var fallbackQuestions = []string{
	"How can I optimize my production efficiency?",
	"What are the best practices for inventory management?",
	"Can you analyze my supply chain performance?",
}

// FallbackQuestions returns a fresh copy of the default follow-up triplet.
func FallbackQuestions() []string {
	out := make([]string, len(fallbackQuestions))
	copy(out, fallbackQuestions)
	return out
}

// Fallback returns the envelope used for absent or unrecognized results.
func Fallback() models.ResponseEnvelope {
	return models.ResponseEnvelope{
		Text:         FallbackText,
		NextQuestion: FallbackQuestions(),
	}
}

// Normalize maps raw onto the envelope. It never fails.
func Normalize(raw models.RawResult) models.ResponseEnvelope {
	switch r := raw.(type) {
	case *models.Reply:
		if r == nil {
			return Fallback()
		}
		return fromReply(r)
	case models.TextResult:
		return models.ResponseEnvelope{Text: string(r), NextQuestion: []string{}}
	case models.FieldsResult:
		return fromFields(r)
	default:
		return Fallback()
	}
}

func fromReply(r *models.Reply) models.ResponseEnvelope {
	questions := make([]string, 0, len(r.NextQuestion))
	questions = append(questions, r.NextQuestion...)
	return models.ResponseEnvelope{
		Text:         r.Text,
		TableData:    r.TableData,
		Summary:      r.Summary,
		NextQuestion: questions,
	}
}

func fromFields(m models.FieldsResult) models.ResponseEnvelope {
	env := models.ResponseEnvelope{NextQuestion: []string{}}

	if v := firstPresent(m, "text", "content"); v != nil {
		env.Text = stringify(v)
	}
	if v := firstPresent(m, "table_data", "data"); v != nil {
		env.TableData = toTableData(v)
	}
	if v, ok := m["summary"]; ok && v != nil {
		s := stringify(v)
		env.Summary = &s
	}
	env.NextQuestion = toQuestions(m["next_question"])

	return env
}

func firstPresent(m models.FieldsResult, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// toTableData accepts a record set in any of the shapes processors have
// produced. Scalars inside a list become {"value": x} records; anything that
// is not list-like is dropped.
func toTableData(v interface{}) *models.TableData {
	switch t := v.(type) {
	case *models.TableData:
		return t
	case models.TableData:
		return &t
	case []map[string]interface{}:
		return &models.TableData{Records: t}
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			if rec, ok := item.(map[string]interface{}); ok {
				records = append(records, rec)
				continue
			}
			records = append(records, map[string]interface{}{"value": item})
		}
		return &models.TableData{Records: records}
	case map[string]interface{}:
		if inner, ok := t["records"]; ok {
			return toTableData(inner)
		}
		return &models.TableData{Records: []map[string]interface{}{t}}
	default:
		return nil
	}
}

func toQuestions(v interface{}) []string {
	switch q := v.(type) {
	case []string:
		out := make([]string, 0, len(q))
		return append(out, q...)
	case []interface{}:
		out := make([]string, 0, len(q))
		for _, item := range q {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	default:
		return []string{}
	}
}
