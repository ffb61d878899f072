package auth

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// DefaultErrorCodeQuery extracts the error code from a JSON error body.
const DefaultErrorCodeQuery = `.error // .error_code // .code`

// ExpiredTokenCode is the error code a backend returns on 401 when the
// access or refresh token has expired.
const ExpiredTokenCode = "token_expired"

// errorCodeQuery runs a compiled jq selector over error bodies.
type errorCodeQuery struct {
	expr string
	code *gojq.Code
}

func compileErrorCodeQuery(expr string) (*errorCodeQuery, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression '%s': %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &errorCodeQuery{expr: expr, code: code}, nil
}

// extract returns the first string the selector yields for body. Bodies that
// are not JSON yield "".
func (q *errorCodeQuery) extract(body []byte) string {
	if q == nil || len(body) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}

	iter := q.code.Run(v)
	for {
		out, ok := iter.Next()
		if !ok {
			return ""
		}
		if _, isErr := out.(error); isErr {
			return ""
		}
		if s, ok := out.(string); ok && s != "" {
			return s
		}
	}
}

func (q *errorCodeQuery) isExpired(body []byte) bool {
	return q.extract(body) == ExpiredTokenCode
}
