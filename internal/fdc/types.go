package fdc

// The structs below follow the FoodData Central OpenAPI models. Optional
// scalars are pointers so that absent and zero stay distinguishable once
// the document is stored.

type AbridgedFoodNutrient struct {
	Name                  *string  `json:"name,omitempty"`
	UnitName              *string  `json:"unitName,omitempty"`
	Number                *string  `json:"number,omitempty"`
	Amount                *float64 `json:"amount,omitempty"`
	DerivationCode        *string  `json:"derivationCode,omitempty"`
	DerivationDescription *string  `json:"derivationDescription,omitempty"`
}

// AbridgedFood is the summary record returned by the foods/list endpoint.
type AbridgedFood struct {
	DataType        string                 `json:"dataType"`
	Description     string                 `json:"description"`
	FdcID           int64                  `json:"fdcId"`
	FoodNutrients   []AbridgedFoodNutrient `json:"foodNutrients"`
	PublicationDate *string                `json:"publicationDate"`
	// Branded foods only.
	BrandOwner *string `json:"brandOwner,omitempty"`
	GtinUpc    *string `json:"gtinUpc,omitempty"`
	// Foundation and SR Legacy foods only.
	NdbNumber *int64 `json:"ndbNumber,omitempty"`
	// Survey foods only.
	FoodCode *string `json:"foodCode,omitempty"`
}

type Nutrient struct {
	ID       *int64  `json:"id,omitempty"`
	Number   *string `json:"number,omitempty"`
	Name     *string `json:"name,omitempty"`
	Rank     *int64  `json:"rank,omitempty"`
	UnitName *string `json:"unitName,omitempty"`
}

type FoodNutrientSource struct {
	ID          *int64  `json:"id,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
}

type FoodNutrientDerivation struct {
	ID                 *int64              `json:"id,omitempty"`
	Code               *string             `json:"code,omitempty"`
	Description        *string             `json:"description,omitempty"`
	FoodNutrientSource *FoodNutrientSource `json:"foodNutrientSource,omitempty"`
}

type NutrientAcquisitionDetails struct {
	SampleUnitID *int64  `json:"sampleUnitId,omitempty"`
	PurchaseDate *string `json:"purchaseDate,omitempty"`
	StoreCity    *string `json:"storeCity,omitempty"`
	StoreState   *string `json:"storeState,omitempty"`
}

type NutrientAnalysisDetails struct {
	SubSampleID                  *int64                       `json:"subSampleId,omitempty"`
	Amount                       *float64                     `json:"amount,omitempty"`
	NutrientID                   *int64                       `json:"nutrientId,omitempty"`
	LabMethodDescription         *string                      `json:"labMethodDescription,omitempty"`
	LabMethodOriginalDescription *string                      `json:"labMethodOriginalDescription,omitempty"`
	LabMethodLink                *string                      `json:"labMethodLink,omitempty"`
	LabMethodTechnique           *string                      `json:"labMethodTechnique,omitempty"`
	NutrientAcquisitionDetails   []NutrientAcquisitionDetails `json:"nutrientAcquisitionDetails,omitempty"`
}

type FoodNutrient struct {
	ID                      *int64                    `json:"id,omitempty"`
	Amount                  *float64                  `json:"amount,omitempty"`
	DataPoints              *int64                    `json:"dataPoints,omitempty"`
	Min                     *float64                  `json:"min,omitempty"`
	Max                     *float64                  `json:"max,omitempty"`
	Median                  *float64                  `json:"median,omitempty"`
	Type                    *string                   `json:"type,omitempty"`
	Nutrient                *Nutrient                 `json:"nutrient,omitempty"`
	FoodNutrientDerivation  *FoodNutrientDerivation   `json:"foodNutrientDerivation,omitempty"`
	NutrientAnalysisDetails []NutrientAnalysisDetails `json:"nutrientAnalysisDetails,omitempty"`
}

type FoodAttributeType struct {
	ID          *int64  `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type FoodAttribute struct {
	ID                *int64             `json:"id,omitempty"`
	SequenceNumber    *int64             `json:"sequenceNumber,omitempty"`
	Value             *string            `json:"value,omitempty"`
	FoodAttributeType *FoodAttributeType `json:"FoodAttributeType,omitempty"`
}

type LabelNutrient struct {
	Value *float64 `json:"value,omitempty"`
}

type LabelNutrients struct {
	Fat           *LabelNutrient `json:"fat,omitempty"`
	SaturatedFat  *LabelNutrient `json:"saturatedFat,omitempty"`
	TransFat      *LabelNutrient `json:"transFat,omitempty"`
	Cholesterol   *LabelNutrient `json:"cholesterol,omitempty"`
	Sodium        *LabelNutrient `json:"sodium,omitempty"`
	Carbohydrates *LabelNutrient `json:"carbohydrates,omitempty"`
	Fiber         *LabelNutrient `json:"fiber,omitempty"`
	Sugars        *LabelNutrient `json:"sugars,omitempty"`
	Protein       *LabelNutrient `json:"protein,omitempty"`
	Calcium       *LabelNutrient `json:"calcium,omitempty"`
	Iron          *LabelNutrient `json:"iron,omitempty"`
	Potassium     *LabelNutrient `json:"potassium,omitempty"`
	Calories      *LabelNutrient `json:"calories,omitempty"`
}

type FoodUpdateLog struct {
	FdcID                    *int64          `json:"fdcId,omitempty"`
	AvailableDate            *string         `json:"availableDate,omitempty"`
	BrandOwner               *string         `json:"brandOwner,omitempty"`
	DataSource               *string         `json:"dataSource,omitempty"`
	DataType                 *string         `json:"dataType,omitempty"`
	Description              *string         `json:"description,omitempty"`
	FoodClass                *string         `json:"foodClass,omitempty"`
	GtinUpc                  *string         `json:"gtinUpc,omitempty"`
	HouseholdServingFullText *string         `json:"householdServingFullText,omitempty"`
	Ingredients              *string         `json:"ingredients,omitempty"`
	ModifiedDate             *string         `json:"modifiedDate,omitempty"`
	PublicationDate          *string         `json:"publicationDate,omitempty"`
	ServingSize              *float64        `json:"servingSize,omitempty"`
	ServingSizeUnit          *string         `json:"servingSizeUnit,omitempty"`
	BrandedFoodCategory      *string         `json:"brandedFoodCategory,omitempty"`
	Changes                  *string         `json:"changes,omitempty"`
	FoodAttributes           []FoodAttribute `json:"foodAttributes,omitempty"`
}

type FoodCategory struct {
	ID          *int64  `json:"id,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
}

type FoodComponent struct {
	ID              *int64   `json:"id,omitempty"`
	Name            *string  `json:"name,omitempty"`
	DataPoints      *int64   `json:"dataPoints,omitempty"`
	GramWeight      *float64 `json:"gramWeight,omitempty"`
	IsRefuse        *bool    `json:"isRefuse,omitempty"`
	MinYearAcquired *int64   `json:"minYearAcquired,omitempty"`
	PercentWeight   *float64 `json:"percentWeight,omitempty"`
}

type MeasureUnit struct {
	ID           *int64  `json:"id,omitempty"`
	Abbreviation *string `json:"abbreviation,omitempty"`
	Name         *string `json:"name,omitempty"`
}

type FoodPortion struct {
	ID                 *int64       `json:"id,omitempty"`
	Amount             *float64     `json:"amount,omitempty"`
	DataPoints         *int64       `json:"dataPoints,omitempty"`
	GramWeight         *float64     `json:"gramWeight,omitempty"`
	MinYearAcquired    *int64       `json:"minYearAcquired,omitempty"`
	Modifier           *string      `json:"modifier,omitempty"`
	PortionDescription *string      `json:"portionDescription,omitempty"`
	SequenceNumber     *int64       `json:"sequenceNumber,omitempty"`
	MeasureUnit        *MeasureUnit `json:"measureUnit,omitempty"`
}

type SampleFoodItem struct {
	FdcID           int64          `json:"fdcId"`
	DataType        *string        `json:"dataType,omitempty"`
	Description     string         `json:"description"`
	FoodClass       *string        `json:"foodClass,omitempty"`
	PublicationDate *string        `json:"publicationDate,omitempty"`
	FoodAttributes  []FoodCategory `json:"foodAttributes,omitempty"`
}

type InputFoodFoundation struct {
	ID              *int64          `json:"id,omitempty"`
	FoodDescription *string         `json:"foodDescription,omitempty"`
	InputFood       *SampleFoodItem `json:"inputFood,omitempty"`
}

type NutrientConversionFactor struct {
	ID                *int64   `json:"id,omitempty"`
	Type              *string  `json:"type,omitempty"`
	Value             *float64 `json:"value,omitempty"`
	Name              *string  `json:"name,omitempty"`
	ProteinValue      *float64 `json:"proteinValue,omitempty"`
	FatValue          *float64 `json:"fatValue,omitempty"`
	CarbohydrateValue *float64 `json:"carbohydrateValue,omitempty"`
}

type WweiaFoodCategory struct {
	WweiaFoodCategoryCode        *int64  `json:"wweiaFoodCategoryCode,omitempty"`
	WweiaFoodCategoryDescription *string `json:"wweiaFoodCategoryDescription,omitempty"`
}

type RetentionFactor struct {
	ID          *int64  `json:"id,omitempty"`
	Code        *int64  `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
}

type SurveyInputFood struct {
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

type InputFoodSurvey struct {
	ID                    *int64           `json:"id,omitempty"`
	Amount                *float64         `json:"amount,omitempty"`
	FoodDescription       *string          `json:"foodDescription,omitempty"`
	IngredientCode        *int64           `json:"ingredientCode,omitempty"`
	IngredientDescription *string          `json:"ingredientDescription,omitempty"`
	IngredientWeight      *float64         `json:"ingredientWeight,omitempty"`
	PortionCode           *string          `json:"portionCode,omitempty"`
	PortionDescription    *string          `json:"portionDescription,omitempty"`
	SequenceNumber        *int64           `json:"sequenceNumber,omitempty"`
	SurveyFlag            *int64           `json:"surveyFlag,omitempty"`
	Unit                  *string          `json:"unit,omitempty"`
	InputFood             *SurveyInputFood `json:"inputFood,omitempty"`
	RetentionFactor       *RetentionFactor `json:"retentionFactor,omitempty"`
}
