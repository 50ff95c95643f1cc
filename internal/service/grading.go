package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

var (
	ErrOptionOutOfRange = errors.New("option out of range")
	ErrInvalidOptionID  = errors.New("invalid option id")
	ErrUnknownQuestion  = errors.New("unknown question")
)

type GradeResult struct {
	Correct  bool
	Feedback string
}

// Grade compares a 1-based option number with the question's correct option.
// Every answer path goes through here.
func Grade(q model.Question, option int) (GradeResult, error) {
	if option < 1 || option > len(q.Options) {
		return GradeResult{}, fmt.Errorf("%w: %d not in 1..%d", ErrOptionOutOfRange, option, len(q.Options))
	}
	if q.CorrectOption < 1 || q.CorrectOption > len(q.Options) {
		return GradeResult{}, fmt.Errorf("%w: question %d has no valid correct option", ErrUnknownQuestion, q.ID)
	}

	answer := q.Options[q.CorrectOption-1]
	if option == q.CorrectOption {
		return GradeResult{
			Correct:  true,
			Feedback: fmt.Sprintf("✅ ¡Correcto! La respuesta es la opción %d: %s.", q.CorrectOption, answer),
		}, nil
	}
	return GradeResult{
		Correct:  false,
		Feedback: fmt.Sprintf("❌ Incorrecto. Elegiste la opción %d. La respuesta correcta es la opción %d: %s.", option, q.CorrectOption, answer),
	}, nil
}

// OptionID encodes a list row id for an answer option.
func OptionID(questionID int64, option int) string {
	return fmt.Sprintf("q_%d_opt_%d", questionID, option)
}

// ParseOptionID decodes ids produced by OptionID.
func ParseOptionID(id string) (questionID int64, option int, err error) {
	parts := strings.Split(id, "_")
	if len(parts) != 4 || parts[0] != "q" || parts[2] != "opt" {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidOptionID, id)
	}
	questionID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidOptionID, id)
	}
	option, err = strconv.Atoi(parts[3])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidOptionID, id)
	}
	return questionID, option, nil
}
