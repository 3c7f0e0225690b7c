package models

import (
	"encoding/json"
	"strconv"
)

// FlexInt is an int that unmarshals from either a JSON number or a string.
// Model responses sometimes quote numeric fields ("experience_years_min":
// "5"); anything unparseable decodes to 0 instead of failing the stage.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var intVal int
	if err := json.Unmarshal(data, &intVal); err == nil {
		*f = FlexInt(intVal)
		return nil
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err == nil {
		parsed, err := strconv.Atoi(strVal)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt(parsed)
		return nil
	}

	*f = 0
	return nil
}

// MarshalJSON always emits a numeric value.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Int returns the FlexInt as a standard int.
func (f FlexInt) Int() int {
	return int(f)
}

// IntPtr returns nil for a nil receiver value, otherwise the plain int.
func (f *FlexInt) IntPtr() *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
