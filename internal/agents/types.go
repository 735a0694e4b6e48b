package agents

// RunStatus is owned by the remote runtime. The orchestrator only ever
// reads it; local code must never synthesize a transition.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusRequiresAction RunStatus = "requires_action"
)

// Terminal reports whether the runtime will never move the run again.
// requires_action is deliberately not terminal: the runtime is waiting on
// the caller, and callers decide what to do with it.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

const (
	RoleUser  = "user"
	RoleAgent = "assistant"
)

type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	Tools        []Tool `json:"tools"`
}

type Thread struct {
	ID string `json:"id"`
}

type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
}

// Message is one entry in a thread. The runtime may append fragments to a
// message in place before finalizing it, so only the id identifies new
// content.
type Message struct {
	ID       string           `json:"id"`
	ThreadID string           `json:"thread_id"`
	Role     string           `json:"role"`
	Content  []MessageContent `json:"content"`
}

type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Value       string       `json:"value"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

type Annotation struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

type URLCitation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// TextFragments returns the message's text values in wire order.
func (m *Message) TextFragments() []string {
	fragments := []string{}
	for _, part := range m.Content {
		if part.Type == "text" && part.Text != nil {
			fragments = append(fragments, part.Text.Value)
		}
	}
	return fragments
}

// URLCitationAnnotations returns the url_citation annotations across all
// text fragments, in wire order.
func (m *Message) URLCitationAnnotations() []Annotation {
	annotations := []Annotation{}
	for _, part := range m.Content {
		if part.Type != "text" || part.Text == nil {
			continue
		}
		for _, ann := range part.Text.Annotations {
			if ann.Type == "url_citation" && ann.URLCitation != nil {
				annotations = append(annotations, ann)
			}
		}
	}
	return annotations
}
