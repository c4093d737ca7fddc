package model

// FoodAnalysis is the structured nutrition result for one food photo.
// Macros are grams, calories kcal; the vision model reports zeros for
// non-food images.
type FoodAnalysis struct {
	Text          string  `json:"text"`
	Carbohydrates float64 `json:"carbohydrates"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Calories      float64 `json:"calories"`

	// ImageBase64 carries the analyzed photo for later persistence. Not part
	// of the model output.
	ImageBase64 string `json:"-"`
}
