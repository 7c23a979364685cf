package processor

import "strings"

// Kind is the processing path chosen for a message.
type Kind int

const (
	// Conversational messages are answered by the completion backend.
	Conversational Kind = iota
	// DataRequest messages are answered with a structured record set.
	DataRequest
)

func (k Kind) String() string {
	if k == DataRequest {
		return "data"
	}
	return "conversational"
}

var dataKeywords = []string{
	"inventory",
	"stock",
	"supply",
	"materials",
	"production",
	"data",
	"metrics",
	"stats",
	"statistics",
	"numbers",
}

// Classify reports whether message asks for data. Matching is a
// case-insensitive substring test against a fixed keyword list.
func Classify(message string) Kind {
	lower := strings.ToLower(message)
	for _, kw := range dataKeywords {
		if strings.Contains(lower, kw) {
			return DataRequest
		}
	}
	return Conversational
}
