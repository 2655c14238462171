// Package transcript holds the ordered record of a practice conversation.
package transcript

import "strings"

type Speaker string

const (
	User       Speaker = "user"
	Challenger Speaker = "challenger"
)

type Entry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is append-only during a conversation. Order defines "latest user
// message" and the context windows sent to the model.
type Transcript []Entry

// Last returns a copy of the trailing n entries.
func (t Transcript) Last(n int) Transcript {
	if n <= 0 {
		return nil
	}
	if n > len(t) {
		n = len(t)
	}
	out := make(Transcript, n)
	copy(out, t[len(t)-n:])
	return out
}

// LatestUser returns the most recent user message, or "" if there is none.
func (t Transcript) LatestUser() string {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Speaker == User {
			return t[i].Text
		}
	}
	return ""
}

func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Format renders one "User: ..." or "Challenger: ..." line per entry.
func (t Transcript) Format() string {
	var b strings.Builder
	for i, e := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		if e.Speaker == User {
			b.WriteString("User: ")
		} else {
			b.WriteString("Challenger: ")
		}
		b.WriteString(e.Text)
	}
	return b.String()
}

// UserLines returns only the user-authored text, one line per message.
func (t Transcript) UserLines() string {
	var lines []string
	for _, e := range t {
		if e.Speaker == User {
			lines = append(lines, e.Text)
		}
	}
	return strings.Join(lines, "\n")
}
