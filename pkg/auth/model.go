package auth

import "strings"

// Model is the authentication model of a backend.
type Model string

const (
	ModelAnonymous Model = "anonymous"
	ModelBasic     Model = "basic"
	ModelBearer    Model = "bearer"
	ModelForm      Model = "form"
	ModelSSO       Model = "sso"
)

var modelAliases = map[string]Model{
	"anonymous": ModelAnonymous,
	"basic":     ModelBasic,
	"bearer":    ModelBearer,
	"form":      ModelForm,
	"sso":       ModelSSO,
	"form_sso":  ModelSSO,
	"oecp":      ModelSSO,
}

// ParseModel maps s (case-insensitive) to a Model.
func ParseModel(s string) (Model, error) {
	if m, ok := modelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", &Error{
		Kind:    KindInvalidArgument,
		Op:      "parse model",
		Message: "unsupported authentication model " + `"` + s + `"`,
	}
}

func (m Model) String() string { return string(m) }

// SupportsRefresh reports whether the model has a refresh token sub-protocol.
func (m Model) SupportsRefresh() bool { return m == ModelSSO }

// UsesCredentials reports whether Login takes a username and password.
func (m Model) UsesCredentials() bool {
	return m == ModelBasic || m == ModelForm || m == ModelSSO
}
