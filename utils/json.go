package utils

import (
	"encoding/json"
)

// convert any input type to json string
func MarshalToJSON[T any](input T) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
