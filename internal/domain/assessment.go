package domain

// HealthVerdict is the closed set of health classifications the model may
// return for a meal. Any other value coming out of the model is coerced to
// HealthUncertain before it reaches persistence or the API response.
type HealthVerdict string

const (
	HealthHealthy   HealthVerdict = "healthy"
	HealthModerate  HealthVerdict = "moderate"
	HealthUnhealthy HealthVerdict = "unhealthy"
	HealthUncertain HealthVerdict = "uncertain"
)

// Valid reports whether v is one of the four allowed verdicts.
func (v HealthVerdict) Valid() bool {
	switch v {
	case HealthHealthy, HealthModerate, HealthUnhealthy, HealthUncertain:
		return true
	}
	return false
}

// FoodAssessment is the structured nutritional verdict produced for one image.
type FoodAssessment struct {
	Food               string        `json:"food"`
	Health             HealthVerdict `json:"health"`
	Reason             string        `json:"reason"`
	NutritionistAdvice string        `json:"nutritionist_advice,omitempty"`
	NextMeal           string        `json:"next_meal"`
}

// FallbackAssessment returns the safe assessment used whenever the model
// call fails or its output cannot be trusted. The reason describes the
// failure class so it stays visible to the user without failing the request.
func FallbackAssessment(reason string) *FoodAssessment {
	return &FoodAssessment{
		Food:               "unknown",
		Health:             HealthUncertain,
		Reason:             reason,
		NutritionistAdvice: "Unable to analyze this image",
		NextMeal:           "Try uploading a clearer image",
	}
}
