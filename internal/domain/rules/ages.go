package rules

const (
	MinAge = 18
	MaxAge = 30
)

func AgeWithinBounds(age, minAge, maxAge int) bool {
	if minAge <= 0 {
		minAge = MinAge
	}
	if maxAge <= 0 {
		maxAge = MaxAge
	}
	return age >= minAge && age <= maxAge
}
