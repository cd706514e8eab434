package models

// Rating is a step-level entrustment rating. The label is the stored value.
type Rating string

const (
	RatingNotAssessed Rating = "Not Assessed"
	RatingNotDone     Rating = "Not Done"
	RatingNotYet      Rating = "Not Yet"
	RatingSteer       Rating = "Steer"
	RatingPrompt      Rating = "Prompt"
	RatingBackUp      Rating = "Back up"
	RatingAuto        Rating = "Auto"
)

// RatingOptions is the order ratings are offered on the assessment form.
var RatingOptions = []Rating{
	RatingNotAssessed,
	RatingNotDone,
	RatingNotYet,
	RatingSteer,
	RatingPrompt,
	RatingBackUp,
	RatingAuto,
}

var ratingOrdinals = map[Rating]int{
	RatingNotAssessed: -1,
	RatingNotDone:     0,
	RatingNotYet:      1,
	RatingSteer:       2,
	RatingPrompt:      3,
	RatingBackUp:      4,
	RatingAuto:        5,
}

// Ordinal returns the numeric value of r; ok is false for unknown labels.
func (r Rating) Ordinal() (n int, ok bool) {
	n, ok = ratingOrdinals[r]
	return n, ok
}

// OrdinalPtr is Ordinal for nullable columns: nil for unknown labels.
func (r Rating) OrdinalPtr() *int {
	n, ok := ratingOrdinals[r]
	if !ok {
		return nil
	}
	return &n
}

func (r Rating) Valid() bool {
	_, ok := ratingOrdinals[r]
	return ok
}

// ParseRating accepts a label exactly as offered on the form.
func ParseRating(s string) (Rating, bool) {
	r := Rating(s)
	return r, r.Valid()
}

// Complexity is the case complexity chosen by the evaluator.
type Complexity string

const (
	ComplexityStraightForward Complexity = "Straight Forward"
	ComplexityModerate        Complexity = "Moderate"
	ComplexityComplex         Complexity = "Complex"
)

var ComplexityOptions = []Complexity{ComplexityStraightForward, ComplexityModerate, ComplexityComplex}

// Level is the 1-based position on the complexity ramp, 0 when unknown.
func (c Complexity) Level() int {
	for i, o := range ComplexityOptions {
		if o == c {
			return i + 1
		}
	}
	return 0
}

func (c Complexity) Valid() bool { return c.Level() > 0 }

// OScore is the overall performance rating, stored as "N - Label".
type OScore string

const (
	OScoreNotYet OScore = "1 - Not Yet"
	OScoreSteer  OScore = "2 - Steer"
	OScorePrompt OScore = "3 - Prompt"
	OScoreBackup OScore = "4 - Backup"
	OScoreAuto   OScore = "5 - Auto"
)

var OScoreOptions = []OScore{OScoreNotYet, OScoreSteer, OScorePrompt, OScoreBackup, OScoreAuto}

// Level returns N (1..5), 0 when unknown.
func (o OScore) Level() int {
	for i, opt := range OScoreOptions {
		if opt == o {
			return i + 1
		}
	}
	return 0
}

func (o OScore) Valid() bool { return o.Level() > 0 }

// OScoreFromLevel maps 1..5 back to the stored label.
func OScoreFromLevel(n int) (OScore, bool) {
	if n < 1 || n > len(OScoreOptions) {
		return "", false
	}
	return OScoreOptions[n-1], true
}
