package domain

// DemoEmail and DemoPassword log in locally without contacting the server.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password"
)

type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Demo  bool   `json:"demo,omitempty"`
}
