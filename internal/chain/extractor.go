package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

var (
	// ErrNotJSON is returned when the response body cannot be decoded
	ErrNotJSON = errors.New("response is not valid JSON")
	// ErrNullValue is returned when an expression matches nothing
	ErrNullValue = errors.New("expression returned null")
)

// ExtractString evaluates a single JMESPath expression against a JSON
// response body and returns the result as a string.
func ExtractString(responseBody, expression string) (string, error) {
	var jsonData interface{}
	if err := json.Unmarshal([]byte(responseBody), &jsonData); err != nil {
		return "", fmt.Errorf("cannot extract %s: %w", expression, ErrNotJSON)
	}
	return search(expression, jsonData)
}

func search(jmesPath string, jsonData interface{}) (string, error) {
	result, err := jmespath.Search(jmesPath, jsonData)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate path %s: %w", jmesPath, err)
	}

	switch v := result.(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%g", v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case nil:
		return "", fmt.Errorf("path %s: %w", jmesPath, ErrNullValue)
	default:
		// Complex types are returned as JSON
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("path %s: failed to convert extracted value to string: %w", jmesPath, err)
		}
		return string(jsonBytes), nil
	}
}
