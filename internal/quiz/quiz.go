// Package quiz holds the Dota 2 trivia questions. Answers never leave the
// server: clients only see option indexes.
package quiz

import "math/rand/v2"

// Question is a multiple-choice question with exactly one correct option
type Question struct {
	ID      int
	Text    string
	Options []string
	Answer  int
}

// CorrectOption returns the text of the right answer
func (q Question) CorrectOption() string {
	return q.Options[q.Answer]
}

// Bank is an immutable set of questions
type Bank struct {
	questions []Question
	pick      func(n int) int
}

// NewBank builds a bank. Question ids are their positions in the slice.
func NewBank(questions []Question) *Bank {
	qs := make([]Question, len(questions))
	copy(qs, questions)
	for i := range qs {
		qs[i].ID = i
	}
	return &Bank{questions: qs, pick: rand.IntN}
}

// DefaultBank returns the built-in questions
func DefaultBank() *Bank {
	return NewBank([]Question{
		{Text: "Which hero has the ultimate 'Black Hole'?", Options: []string{"Enigma", "Magnus", "Faceless Void", "Tidehunter"}, Answer: 0},
		{Text: "Which item grants invisibility?", Options: []string{"Black King Bar", "Manta Style", "Shadow Blade", "Blink Dagger"}, Answer: 2},
		{Text: "Which boss lives by the river?", Options: []string{"Roshan", "Tormentor", "Ancient", "Courier"}, Answer: 0},
		{Text: "How many heroes are on each team?", Options: []string{"4", "5", "6", "10"}, Answer: 1},
		{Text: "Which rune doubles a hero's damage?", Options: []string{"Haste", "Arcane", "Double Damage", "Regeneration"}, Answer: 2},
	})
}

// Len returns the number of questions
func (b *Bank) Len() int {
	return len(b.questions)
}

// Random returns a random question
func (b *Bank) Random() Question {
	return b.questions[b.pick(len(b.questions))]
}

// Get returns a question by id
func (b *Bank) Get(id int) (Question, bool) {
	if id < 0 || id >= len(b.questions) {
		return Question{}, false
	}
	return b.questions[id], true
}

// Check reports whether option is the right answer to question id. ok is
// false when either index is out of range.
func (b *Bank) Check(id, option int) (correct, ok bool) {
	q, found := b.Get(id)
	if !found || option < 0 || option >= len(q.Options) {
		return false, false
	}
	return option == q.Answer, true
}
