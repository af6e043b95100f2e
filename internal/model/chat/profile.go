package chat

// UserProfile carries optional user-supplied hints that bias the
// assistant's tone. Both fields are free-form and may be empty.
type UserProfile struct {
	Name        string `json:"name,omitempty"`
	Personality string `json:"personality,omitempty"`
}
