package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleID holds identifiers that older clients wrote as JSON numbers and
// newer ones write as strings. Comparison always uses the string form.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(value))
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("cannot decode %s into FlexibleID", string(trimmed))
	}
	*id = FlexibleID(number.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}
