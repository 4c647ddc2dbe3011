package convo

// Example is a clickable sample question on the chat page.
type Example struct {
	Title    string `json:"title" yaml:"title"`
	Question string `json:"question" yaml:"question"`
}

type Preset struct {
	Welcome  string    `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Examples []Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}
