package services

import "github.com/jenkinph/procedure-passport/models"

// Fill is a cell color as RGB hex without '#'. Font is empty for the
// default (black) text.
type Fill struct {
	Background string `json:"background"`
	Font       string `json:"font,omitempty"`
}

// CSS renders the fill as an inline style.
func (f *Fill) CSS() string {
	if f == nil {
		return ""
	}
	css := "background-color:#" + f.Background + ";"
	if f.Font != "" {
		css += "color:#" + f.Font + ";"
	}
	return css
}

const white = "FFFFFF"

var ratingFills = map[models.Rating]*Fill{
	models.RatingNotDone: {Background: "D3D3D3"},
	models.RatingNotYet:  {Background: "FF0000", Font: white},
	models.RatingSteer:   {Background: "FFA500"},
	models.RatingPrompt:  {Background: "FFD700"},
	models.RatingBackUp:  {Background: "90EE90"},
	models.RatingAuto:    {Background: "008000", Font: white},
}

var complexityFills = map[models.Complexity]*Fill{
	models.ComplexityStraightForward: {Background: "C6EFCE"},
	models.ComplexityModerate:        {Background: "FFF2CC"},
	models.ComplexityComplex:         {Background: "F8CBAD"},
}

// O-Score N uses the fill of the rating with ordinal N.
var oscoreRamp = []models.Rating{
	models.RatingNotYet,
	models.RatingSteer,
	models.RatingPrompt,
	models.RatingBackUp,
	models.RatingAuto,
}

// RatingFill is nil for Not Assessed and unknown labels.
func RatingFill(r models.Rating) *Fill { return ratingFills[r] }

func ComplexityFill(c models.Complexity) *Fill { return complexityFills[c] }

func OScoreFill(o models.OScore) *Fill {
	n := o.Level()
	if n == 0 {
		return nil
	}
	return ratingFills[oscoreRamp[n-1]]
}
