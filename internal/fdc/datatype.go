package fdc

import "fmt"

// DataType is the FoodData Central classification of a food's provenance.
// It selects which detail schema applies to the food.
type DataType string

const (
	DataTypeFoundation DataType = "Foundation"
	DataTypeSRLegacy   DataType = "SR Legacy"
	DataTypeSurvey     DataType = "Survey (FNDDS)"
	DataTypeBranded    DataType = "Branded"
)

// AllDataTypes lists every data type in catalog order.
func AllDataTypes() []DataType {
	return []DataType{DataTypeFoundation, DataTypeSRLegacy, DataTypeSurvey, DataTypeBranded}
}

// ParseDataType converts the wire value into a DataType.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if !dt.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataType, s)
	}
	return dt, nil
}

// Valid reports whether dt is one of the four known data types.
func (dt DataType) Valid() bool {
	switch dt {
	case DataTypeFoundation, DataTypeSRLegacy, DataTypeSurvey, DataTypeBranded:
		return true
	}
	return false
}

// Slug is a path-safe short name, e.g. "sr_legacy".
func (dt DataType) Slug() string {
	switch dt {
	case DataTypeFoundation:
		return "foundation"
	case DataTypeSRLegacy:
		return "sr_legacy"
	case DataTypeSurvey:
		return "survey"
	case DataTypeBranded:
		return "branded"
	}
	return "unknown"
}

func (dt DataType) String() string { return string(dt) }
