package repo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

var validate = validator.New()

// LoadQuestions reads a question bank from a single file or from every
// .csv/.yaml/.yml file in a directory. Every record is validated and ids
// must be unique across all files.
func LoadQuestions(path string) ([]model.Question, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("questions path: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, werr error) error {
			if werr != nil {
				return werr
			}
			if !d.IsDir() && isQuestionFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	seen := make(map[int64]string)
	var out []model.Question
	for _, f := range files {
		qs, err := loadQuestionFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		for _, q := range qs {
			if prev, dup := seen[q.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate question id %d (first seen in %s)", f, q.ID, prev)
			}
			seen[q.ID] = f
			out = append(out, q)
		}
	}
	return out, nil
}

func isQuestionFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv", ".yaml", ".yml":
		return true
	}
	return false
}

func loadQuestionFile(path string) ([]model.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var qs []model.Question
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		qs, err = ParseQuestionsCSV(f)
	case ".yaml", ".yml":
		qs, err = ParseQuestionsYAML(f)
	default:
		return nil, fmt.Errorf("unsupported question file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return qs, nil
}

// ParseQuestionsCSV reads rows with a header naming id, area, question (or text),
// one or more option columns (option_1, option_2, ...) and correct (or answer).
func ParseQuestionsCSV(r io.Reader) ([]model.Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	var optionCols []int
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if strings.HasPrefix(name, "option") || strings.HasPrefix(name, "opcion") || strings.HasPrefix(name, "opción") {
			optionCols = append(optionCols, i)
			continue
		}
		cols[name] = i
	}

	idCol, ok := cols["id"]
	if !ok {
		return nil, errors.New("missing id column")
	}
	textCol, ok := firstColumn(cols, "question", "text", "pregunta")
	if !ok {
		return nil, errors.New("missing question column")
	}
	correctCol, ok := firstColumn(cols, "correct", "answer", "respuesta")
	if !ok {
		return nil, errors.New("missing correct column")
	}
	areaCol, hasArea := firstColumn(cols, "area", "category", "categoria")
	if len(optionCols) == 0 {
		return nil, errors.New("missing option columns")
	}

	var out []model.Question
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blankRecord(rec) {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(field(rec, idCol)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q", line, field(rec, idCol))
		}

		var options []string
		for _, c := range optionCols {
			if opt := strings.TrimSpace(field(rec, c)); opt != "" {
				options = append(options, opt)
			}
		}

		correct, err := parseCorrectOption(field(rec, correctCol))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		q := model.Question{
			ID:            id,
			Text:          strings.TrimSpace(field(rec, textCol)),
			Options:       options,
			CorrectOption: correct,
		}
		if hasArea {
			q.Area = strings.TrimSpace(field(rec, areaCol))
		}
		if err := validateQuestion(&q); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, q)
	}
	return out, nil
}

type yamlQuestion struct {
	ID      int64    `yaml:"id"`
	Area    string   `yaml:"area"`
	Text    string   `yaml:"text"`
	Options []string `yaml:"options"`
	Correct string   `yaml:"correct"`
}

// ParseQuestionsYAML reads a YAML sequence of {id, area, text, options, correct}.
func ParseQuestionsYAML(r io.Reader) ([]model.Question, error) {
	var raw []yamlQuestion
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	out := make([]model.Question, 0, len(raw))
	for i, rq := range raw {
		correct, err := parseCorrectOption(rq.Correct)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		q := model.Question{
			ID:            rq.ID,
			Area:          strings.TrimSpace(rq.Area),
			Text:          strings.TrimSpace(rq.Text),
			Options:       rq.Options,
			CorrectOption: correct,
		}
		if err := validateQuestion(&q); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func validateQuestion(q *model.Question) error {
	q.OptionCount = len(q.Options)
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("question %d: %w", q.ID, err)
	}
	return nil
}

// parseCorrectOption accepts a 1-based number ("2") or a letter ("B", "b)").
func parseCorrectOption(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ").")
	if s == "" {
		return 0, errors.New("empty correct option")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if len(s) == 1 {
		c := strings.ToUpper(s)[0]
		if c >= 'A' && c <= 'Z' {
			return int(c-'A') + 1, nil
		}
	}
	return 0, fmt.Errorf("invalid correct option %q", raw)
}

func firstColumn(cols map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
