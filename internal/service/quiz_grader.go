package service

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/memo-edu/memo-api/internal/models"
)

// Grading outcomes of a single answer.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeManual    = "manual"
	OutcomeSkipped   = "skipped"
)

const (
	keywordCorrectRatio = 0.7
	keywordManualRatio  = 0.4
	numericEpsilon      = 1e-9
	weakConceptMinCount = 2
	weakConceptMinRate  = 0.5
)

// Grade is the outcome of one answer. Credit is the fraction of the question's points earned.
type Grade struct {
	Outcome string
	Credit  float64
}

func correctGrade() Grade   { return Grade{Outcome: OutcomeCorrect, Credit: 1} }
func incorrectGrade() Grade { return Grade{Outcome: OutcomeIncorrect} }

// GradeAnswer checks answer against the question's stored correct answer.
func GradeAnswer(q models.QuizQuestion, answer models.RawJSON) Grade {
	if blankAnswer(answer) {
		return Grade{Outcome: OutcomeSkipped}
	}
	switch q.QuestionType {
	case models.QuestionSingleChoice:
		return gradeSingleChoice(q.CorrectAnswer, answer)
	case models.QuestionMultipleChoice:
		return gradeMultipleChoice(q.CorrectAnswer, answer)
	case models.QuestionTrueFalse:
		return gradeTrueFalse(q.CorrectAnswer, answer)
	case models.QuestionMatching:
		return gradeMatching(q.CorrectAnswer, answer)
	case models.QuestionSequence:
		return gradeSequence(q.CorrectAnswer, answer)
	case models.QuestionFillBlank:
		return gradeFillBlank(q.CorrectAnswer, answer)
	case models.QuestionNumeric:
		return gradeNumeric(q.CorrectAnswer, answer)
	case models.QuestionShortAnswer:
		return gradeShortAnswer(q.CorrectAnswer, answer)
	default:
		return Grade{Outcome: OutcomeManual}
	}
}

func gradeSingleChoice(correct, answer []byte) Grade {
	accepted, ok := intList(unwrapAnswer(correct))
	if !ok {
		return Grade{Outcome: OutcomeManual}
	}
	picked, ok := intList(answer)
	if !ok || len(picked) != 1 {
		return incorrectGrade()
	}
	for _, idx := range accepted {
		if idx == picked[0] {
			return correctGrade()
		}
	}
	return incorrectGrade()
}

func gradeMultipleChoice(correct, answer []byte) Grade {
	expected, ok := intList(unwrapAnswer(correct))
	if !ok || len(expected) == 0 {
		return Grade{Outcome: OutcomeManual}
	}
	picked, ok := intList(answer)
	if !ok {
		return incorrectGrade()
	}
	expected, picked = uniqueSorted(expected), uniqueSorted(picked)
	if equalInts(expected, picked) {
		return correctGrade()
	}

	want := make(map[int]bool, len(expected))
	for _, idx := range expected {
		want[idx] = true
	}
	hits, misses := 0, 0
	for _, idx := range picked {
		if want[idx] {
			hits++
		} else {
			misses++
		}
	}
	credit := float64(hits-misses) / float64(len(expected))
	return Grade{Outcome: OutcomeIncorrect, Credit: clamp01(credit)}
}

func gradeTrueFalse(correct, answer []byte) Grade {
	want, ok := asBool(unwrapAnswer(correct))
	if !ok {
		return Grade{Outcome: OutcomeManual}
	}
	got, ok := asBool(answer)
	if ok && got == want {
		return correctGrade()
	}
	return incorrectGrade()
}

func gradeMatching(correct, answer []byte) Grade {
	expected := pairs(unwrapAnswer(correct))
	if len(expected) == 0 {
		return Grade{Outcome: OutcomeManual}
	}
	given := pairs(answer)
	matched := 0
	for left, right := range expected {
		if got, ok := given[left]; ok && normalizeText(got) == normalizeText(right) {
			matched++
		}
	}
	if matched == len(expected) {
		return correctGrade()
	}
	return Grade{Outcome: OutcomeIncorrect, Credit: float64(matched) / float64(len(expected))}
}

func gradeSequence(correct, answer []byte) Grade {
	expected, ok := scalarList(unwrapAnswer(correct))
	if !ok || len(expected) == 0 {
		return Grade{Outcome: OutcomeManual}
	}
	given, ok := scalarList(answer)
	if !ok || len(given) != len(expected) {
		return incorrectGrade()
	}
	for i := range expected {
		if normalizeText(expected[i]) != normalizeText(given[i]) {
			return incorrectGrade()
		}
	}
	return correctGrade()
}

func gradeFillBlank(correct, answer []byte) Grade {
	blanks := blankAlternatives(correct)
	if len(blanks) == 0 {
		return Grade{Outcome: OutcomeManual}
	}
	given, ok := scalarList(answer)
	if !ok || len(given) != len(blanks) {
		return incorrectGrade()
	}
	for i, alternatives := range blanks {
		if !containsNormalized(alternatives, given[i]) {
			return incorrectGrade()
		}
	}
	return correctGrade()
}

func gradeNumeric(correct, answer []byte) Grade {
	var key struct {
		Value     *float64 `json:"value"`
		Answer    *float64 `json:"answer"`
		Tolerance float64  `json:"tolerance"`
	}
	want, ok := asFloat(correct)
	tolerance := 0.0
	if !ok {
		if err := json.Unmarshal(correct, &key); err != nil {
			return Grade{Outcome: OutcomeManual}
		}
		switch {
		case key.Value != nil:
			want = *key.Value
		case key.Answer != nil:
			want = *key.Answer
		default:
			return Grade{Outcome: OutcomeManual}
		}
		tolerance = math.Abs(key.Tolerance)
	}
	got, ok := asFloat(answer)
	if ok && math.Abs(got-want) <= tolerance+numericEpsilon {
		return correctGrade()
	}
	return incorrectGrade()
}

func gradeShortAnswer(correct, answer []byte) Grade {
	keywords := answerKeywords(correct)
	if len(keywords) == 0 {
		return Grade{Outcome: OutcomeManual}
	}
	text, ok := asString(answer)
	if !ok {
		return incorrectGrade()
	}
	text = normalizeText(text)
	found := 0
	for _, kw := range keywords {
		if kw = normalizeText(kw); kw != "" && strings.Contains(text, kw) {
			found++
		}
	}
	ratio := float64(found) / float64(len(keywords))
	switch {
	case ratio >= keywordCorrectRatio:
		return correctGrade()
	case ratio >= keywordManualRatio:
		return Grade{Outcome: OutcomeManual}
	default:
		return incorrectGrade()
	}
}

// Score is the tally of a graded attempt.
type Score struct {
	Correct      int
	Incorrect    int
	Skipped      int
	TotalPoints  float64
	MaxScore     float64
	Percentage   float64
	Grades       map[int64]Grade
	WeakConcepts []models.WeakConcept
}

// ScoreAttempt grades every question against answers keyed by question id.
// Answers needing manual review count as skipped; partial credit earns points only.
func ScoreAttempt(questions []models.QuizQuestion, answers models.AttemptAnswers) Score {
	score := Score{Grades: make(map[int64]Grade, len(questions))}
	type tagTally struct{ total, correct int }
	tags := map[string]*tagTally{}
	var tagOrder []string

	for _, q := range questions {
		score.MaxScore += q.Points
		grade := GradeAnswer(q, answers[strconv.FormatInt(q.ID, 10)].Answer)
		score.Grades[q.ID] = grade

		switch grade.Outcome {
		case OutcomeCorrect:
			score.Correct++
			score.TotalPoints += q.Points
		case OutcomeIncorrect:
			score.Incorrect++
			if grade.Credit > 0 && grade.Credit < 1 {
				score.TotalPoints += grade.Credit * q.Points
			}
		default:
			score.Skipped++
			continue
		}

		for _, tag := range q.Tags {
			t, ok := tags[tag]
			if !ok {
				t = &tagTally{}
				tags[tag] = t
				tagOrder = append(tagOrder, tag)
			}
			t.total++
			if grade.Outcome == OutcomeCorrect {
				t.correct++
			}
		}
	}

	if score.MaxScore > 0 {
		score.Percentage = math.Round(score.TotalPoints/score.MaxScore*10000) / 100
	}
	score.TotalPoints = math.Round(score.TotalPoints*100) / 100

	for _, tag := range tagOrder {
		t := tags[tag]
		if t.total < weakConceptMinCount {
			continue
		}
		rate := float64(t.total-t.correct) / float64(t.total)
		if rate >= weakConceptMinRate {
			score.WeakConcepts = append(score.WeakConcepts, models.WeakConcept{
				Tag: tag, Correct: t.correct, Total: t.total, ErrorRate: math.Round(rate*100) / 100,
			})
		}
	}
	sort.SliceStable(score.WeakConcepts, func(i, j int) bool {
		return score.WeakConcepts[i].ErrorRate > score.WeakConcepts[j].ErrorRate
	})
	return score
}

// PerformanceMessage describes a score percentage.
func PerformanceMessage(percentage float64) string {
	switch {
	case percentage >= 90:
		return "Excellent! You have mastered this quiz."
	case percentage >= 80:
		return "Very good work, only a few mistakes."
	case percentage >= 70:
		return "Good result, keep practising."
	case percentage >= 60:
		return "Fair result, review the questions you missed."
	case percentage >= 50:
		return "You are getting there, more revision is needed."
	default:
		return "Keep studying and try again."
	}
}

var arabicLetterFolds = strings.NewReplacer("أ", "ا", "إ", "ا", "آ", "ا", "ة", "ه", "ى", "ي")

// normalizeText lowercases, strips Arabic diacritics, folds letter variants and collapses whitespace.
func normalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r >= 0x064B && r <= 0x065F {
			return -1
		}
		return r
	}, strings.ToLower(s))
	s = arabicLetterFolds.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func blankAnswer(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if models.RawJSON(trimmed).IsNull() {
		return true
	}
	switch string(trimmed) {
	case `""`, `[]`, `{}`:
		return true
	}
	if s, ok := asString(trimmed); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// unwrapAnswer returns the "answer" member of a legacy {"answer": ...} document, else raw.
func unwrapAnswer(raw []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if inner, ok := obj["answer"]; ok {
			return inner
		}
	}
	return raw
}

func asString(raw []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func asFloat(raw []byte) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	if s, ok := asString(raw); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(raw []byte) (int, bool) {
	f, ok := asFloat(raw)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asBool(raw []byte) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	if s, ok := asString(raw); ok {
		switch normalizeText(s) {
		case "true", "1", "صحيح", "vrai":
			return true, true
		case "false", "0", "خطا", "faux":
			return false, true
		}
		return false, false
	}
	if n, ok := asInt(raw); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}

// intList reads a list of integers or a single integer.
func intList(raw []byte) ([]int, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		n, ok := asInt(raw)
		if !ok {
			return nil, false
		}
		return []int{n}, true
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := asInt(item)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// scalarList reads a list of scalars as strings, or a single scalar.
func scalarList(raw []byte) ([]string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s, ok := scalarString(raw)
		if !ok {
			return nil, false
		}
		return []string{s}, true
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := scalarString(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func scalarString(raw []byte) (string, bool) {
	if s, ok := asString(raw); ok {
		return s, true
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return "", false
	}
	return string(trimmed), true
}

// pairs reads matching answers given as {"left": "right"}, [["left", "right"]] or [{"left": .., "right": ..}].
func pairs(raw []byte) map[string]string {
	out := map[string]string{}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k, v := range obj {
			if s, ok := scalarString(v); ok {
				out[k] = s
			}
		}
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		if pair, ok := scalarList(item); ok && len(pair) == 2 {
			out[pair[0]] = pair[1]
			continue
		}
		var lr struct {
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(item, &lr); err != nil {
			continue
		}
		left, lok := scalarString(lr.Left)
		right, rok := scalarString(lr.Right)
		if lok && rok {
			out[left] = right
		}
	}
	return out
}

// blankAlternatives reads the accepted values of each blank. The legacy form
// {"answer": "x", "alternatives": ["y"]} describes a single blank.
func blankAlternatives(raw []byte) [][]string {
	var legacy struct {
		Answer       json.RawMessage `json:"answer"`
		Alternatives []string        `json:"alternatives"`
	}
	if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy.Answer) > 0 {
		first, ok := scalarString(legacy.Answer)
		if !ok {
			return nil
		}
		return [][]string{append([]string{first}, legacy.Alternatives...)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s, ok := scalarString(raw); ok {
			return [][]string{{s}}
		}
		return nil
	}
	out := make([][]string, 0, len(items))
	for _, item := range items {
		alternatives, ok := scalarList(item)
		if !ok || len(alternatives) == 0 {
			return nil
		}
		out = append(out, alternatives)
	}
	return out
}

func answerKeywords(raw []byte) []string {
	var key struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal(raw, &key); err == nil {
		return key.Keywords
	}
	list, _ := scalarList(raw)
	return list
}

func containsNormalized(alternatives []string, value string) bool {
	value = normalizeText(value)
	for _, alt := range alternatives {
		if normalizeText(alt) == value {
			return true
		}
	}
	return false
}

func uniqueSorted(values []int) []int {
	seen := make(map[int]bool, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
