package fdc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Detail is a full food record. It is a closed union: the only
// implementations are *FoundationFood, *SRLegacyFood, *SurveyFood and
// *BrandedFood, produced by ParseDetail from the dataType field.
type Detail interface {
	// Header returns the identifying fields shared by every variant.
	Header() DetailHeader
	isDetail()
}

// DetailHeader is the part of a Detail that mirrors the summary record.
type DetailHeader struct {
	FdcID       int64
	DataType    DataType
	Description string
	BrandOwner  *string
}

type FoundationFood struct {
	FdcID                     int64                      `json:"fdcId"`
	DataType                  string                     `json:"dataType"`
	Description               string                     `json:"description"`
	FoodClass                 *string                    `json:"foodClass,omitempty"`
	FootNote                  *string                    `json:"footNote,omitempty"`
	IsHistoricalReference     *bool                      `json:"isHistoricalReference,omitempty"`
	NdbNumber                 *int64                     `json:"ndbNumber,omitempty"`
	PublicationDate           *string                    `json:"publicationDate,omitempty"`
	ScientificName            *string                    `json:"scientificName,omitempty"`
	FoodCategory              *FoodCategory              `json:"foodCategory,omitempty"`
	FoodComponents            []FoodComponent            `json:"foodComponents,omitempty"`
	FoodNutrients             []FoodNutrient             `json:"foodNutrients,omitempty"`
	FoodPortions              []FoodPortion              `json:"foodPortions,omitempty"`
	InputFoods                []InputFoodFoundation      `json:"inputFoods,omitempty"`
	NutrientConversionFactors []NutrientConversionFactor `json:"nutrientConversionFactors,omitempty"`
}

type SRLegacyFood struct {
	FdcID                     int64                      `json:"fdcId"`
	DataType                  string                     `json:"dataType"`
	Description               string                     `json:"description"`
	FoodClass                 *string                    `json:"foodClass,omitempty"`
	IsHistoricalReference     *bool                      `json:"isHistoricalReference,omitempty"`
	NdbNumber                 *int64                     `json:"ndbNumber,omitempty"`
	PublicationDate           *string                    `json:"publicationDate,omitempty"`
	ScientificName            *string                    `json:"scientificName,omitempty"`
	FoodCategory              *FoodCategory              `json:"foodCategory,omitempty"`
	FoodNutrients             []FoodNutrient             `json:"foodNutrients,omitempty"`
	NutrientConversionFactors []NutrientConversionFactor `json:"nutrientConversionFactors,omitempty"`
}

type SurveyFood struct {
	FdcID             int64              `json:"fdcId"`
	DataType          *string            `json:"dataType,omitempty"`
	Description       string             `json:"description"`
	EndDate           *string            `json:"endDate,omitempty"`
	FoodClass         *string            `json:"foodClass,omitempty"`
	FoodCode          *string            `json:"foodCode,omitempty"`
	PublicationDate   *string            `json:"publicationDate,omitempty"`
	StartDate         *string            `json:"startDate,omitempty"`
	FoodAttributes    []FoodAttribute    `json:"foodAttributes,omitempty"`
	FoodPortions      []FoodPortion      `json:"foodPortions,omitempty"`
	InputFoods        []InputFoodSurvey  `json:"inputFoods,omitempty"`
	WweiaFoodCategory *WweiaFoodCategory `json:"wweiaFoodCategory,omitempty"`
}

type BrandedFood struct {
	FdcID                    int64           `json:"fdcId"`
	AvailableDate            *string         `json:"availableDate,omitempty"`
	BrandOwner               *string         `json:"brandOwner,omitempty"`
	DataSource               *string         `json:"dataSource,omitempty"`
	DataType                 string          `json:"dataType"`
	Description              string          `json:"description"`
	FoodClass                *string         `json:"foodClass,omitempty"`
	GtinUpc                  *string         `json:"gtinUpc,omitempty"`
	HouseholdServingFullText *string         `json:"householdServingFullText,omitempty"`
	Ingredients              *string         `json:"ingredients,omitempty"`
	ModifiedDate             *string         `json:"modifiedDate,omitempty"`
	PublicationDate          *string         `json:"publicationDate,omitempty"`
	ServingSize              *float64        `json:"servingSize,omitempty"`
	ServingSizeUnit          *string         `json:"servingSizeUnit,omitempty"`
	PreparationStateCode     *string         `json:"preparationStateCode,omitempty"`
	BrandedFoodCategory      *string         `json:"brandedFoodCategory,omitempty"`
	TradeChannel             []string        `json:"tradeChannel"`
	GpcClassCode             *int64          `json:"gpcClassCode,omitempty"`
	FoodNutrients            []FoodNutrient  `json:"foodNutrients,omitempty"`
	FoodUpdateLog            []FoodUpdateLog `json:"foodUpdateLog,omitempty"`
	LabelNutrients           *LabelNutrients `json:"labelNutrients,omitempty"`
}

func (f *FoundationFood) Header() DetailHeader {
	return DetailHeader{FdcID: f.FdcID, DataType: DataTypeFoundation, Description: f.Description}
}

func (f *SRLegacyFood) Header() DetailHeader {
	return DetailHeader{FdcID: f.FdcID, DataType: DataTypeSRLegacy, Description: f.Description}
}

func (f *SurveyFood) Header() DetailHeader {
	return DetailHeader{FdcID: f.FdcID, DataType: DataTypeSurvey, Description: f.Description}
}

func (f *BrandedFood) Header() DetailHeader {
	return DetailHeader{FdcID: f.FdcID, DataType: DataTypeBranded, Description: f.Description, BrandOwner: f.BrandOwner}
}

func (*FoundationFood) isDetail() {}
func (*SRLegacyFood) isDetail()   {}
func (*SurveyFood) isDetail()     {}
func (*BrandedFood) isDetail()    {}

// ParseDetail decodes a single-food payload into the variant selected by
// its dataType field.
func ParseDetail(raw []byte) (Detail, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrUnexpectedShape, jsonKind(raw))
	}

	var probe struct {
		DataType *string `json:"dataType"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode food: %w", err)
	}
	discriminator := ""
	if probe.DataType != nil {
		discriminator = *probe.DataType
	}

	var d Detail
	switch DataType(discriminator) {
	case DataTypeFoundation:
		d = &FoundationFood{}
	case DataTypeSRLegacy:
		d = &SRLegacyFood{}
	case DataTypeSurvey:
		d = &SurveyFood{}
	case DataTypeBranded:
		d = &BrandedFood{TradeChannel: []string{}}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, discriminator)
	}

	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("decode %s food: %w", discriminator, err)
	}
	if d.Header().FdcID == 0 {
		return nil, fmt.Errorf("%w: missing fdcId", ErrInvalidRecord)
	}
	return d, nil
}

// jsonKind names the top-level JSON kind of raw for error messages.
func jsonKind(raw []byte) string {
	if len(raw) == 0 {
		return "empty body"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// isFalsy reports whether raw is an empty-ish JSON value: null, false, 0,
// "", {} or [].
func isFalsy(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch value := v.(type) {
	case nil:
		return true
	case bool:
		return !value
	case float64:
		return value == 0
	case string:
		return value == ""
	case map[string]any:
		return len(value) == 0
	case []any:
		return len(value) == 0
	}
	return false
}
