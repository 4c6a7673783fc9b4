package catalog

// Field names of the USDA PLANTS dataset used by the default catalog.
const (
	FieldID           = "id"
	FieldName         = "Scientific_Name_x"
	FieldTempMinimum  = "Temperature_Minimum_F"
	FieldMoistureUse  = "Moisture_Use"
	FieldDrought      = "Drought_Tolerance"
	FieldShade        = "Shade_Tolerance"
	FieldFlowerColor  = "Flower_Color"
	FieldGrowthRate   = "Growth_Rate"
	FieldLifespan     = "Lifespan"
	FieldSalinity     = "Salinity_Tolerance"
	FieldHedge        = "Hedge_Tolerance"
	FieldToxicity     = "Toxicity"
	FieldPHMinimum    = "pH_Minimum"
	FieldPHMaximum    = "pH_Maximum"
	FieldFlowerShowy  = "Flower_Conspicuous"
	FieldFallShowy    = "Fall_Conspicuous"
	FieldFruitShowy   = "Fruit_Conspicuous"
	FieldFireResist   = "Fire_Resistance"
)

var (
	toleranceLevels = []string{"None", "Low", "Medium", "High"}
	threePoint      = []int{1, 2, 3}
)

// plantFields is the default schema, in feature-matrix order.
var plantFields = []Field{
	{Name: FieldID, Kind: KindIdentifier},
	{Name: FieldName, Kind: KindIdentifier},

	{Name: "Category", Kind: KindCategorical},
	{Name: "Family", Kind: KindCategorical},
	{Name: "Growth_Habit", Kind: KindCategorical},
	{Name: "Native_Status", Kind: KindCategorical},
	{Name: "Active_Growth_Period", Kind: KindCategorical},
	{Name: FieldFallShowy, Kind: KindCategorical},
	{Name: FieldFireResist, Kind: KindCategorical},
	{Name: FieldFlowerColor, Kind: KindCategorical},
	{Name: FieldFlowerShowy, Kind: KindCategorical},
	{Name: FieldFruitShowy, Kind: KindCategorical},
	{Name: "Bloom_Period", Kind: KindCategorical},

	{Name: FieldGrowthRate, Kind: KindOrdinal, Levels: []string{"Slow", "Moderate", "Rapid"}, Ranks: threePoint},
	{Name: FieldLifespan, Kind: KindOrdinal, Levels: []string{"Short", "Moderate", "Long"}, Ranks: threePoint},
	{Name: FieldToxicity, Kind: KindOrdinal, Levels: []string{"None", "Slight", "Moderate", "Severe"}},
	{Name: FieldDrought, Kind: KindOrdinal, Levels: toleranceLevels},
	{Name: FieldHedge, Kind: KindOrdinal, Levels: toleranceLevels},
	{Name: FieldMoistureUse, Kind: KindOrdinal, Levels: toleranceLevels},
	{Name: FieldSalinity, Kind: KindOrdinal, Levels: toleranceLevels},
	{Name: FieldShade, Kind: KindOrdinal, Levels: []string{"Intolerant", "Intermediate", "Tolerant"}},

	{Name: FieldPHMinimum, Kind: KindNumeric},
	{Name: FieldPHMaximum, Kind: KindNumeric},
	{Name: FieldTempMinimum, Kind: KindNumeric},
}

// Plants returns the default USDA PLANTS catalog.
func Plants() *Catalog {
	c, err := New(plantFields)
	if err != nil {
		panic("default plant catalog is invalid: " + err.Error())
	}
	return c
}
