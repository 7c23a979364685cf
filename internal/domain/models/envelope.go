package models

// TableData is the structured record set attached to data replies.
type TableData struct {
	Records []map[string]interface{} `json:"records"`
}

// ResponseEnvelope is the normalized reply shape returned to callers.
// Every field is always present in the JSON encoding.
type ResponseEnvelope struct {
	Text         string     `json:"text"`
	TableData    *TableData `json:"table_data"`
	Summary      *string    `json:"summary"`
	NextQuestion []string   `json:"next_question"`
}

// RawResult is the processor output handed to the formatter. It is one of
// *Reply, TextResult or FieldsResult; nil means the processor produced nothing.
type RawResult interface {
	isRawResult()
}

// Reply is the native processor result.
type Reply struct {
	Text         string     `json:"text"`
	TableData    *TableData `json:"table_data,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	NextQuestion []string   `json:"next_question"`
}

// TextResult is a bare text result.
type TextResult string

// FieldsResult is a loosely typed mapping, possibly carrying legacy field
// names (content, data).
type FieldsResult map[string]interface{}

func (*Reply) isRawResult()       {}
func (TextResult) isRawResult()   {}
func (FieldsResult) isRawResult() {}
