package model

// Question is a single multiple-choice quiz item. CorrectOption is 1-based.
type Question struct {
	ID            int64 `validate:"gt=0"`
	Area          string
	Text          string   `validate:"required"`
	Options       []string `validate:"min=2,max=10,dive,required"`
	CorrectOption int      `validate:"gte=1,ltefield=OptionCount"`

	// OptionCount mirrors len(Options) so the validator can bound CorrectOption.
	OptionCount int
}
