package telegram

import "sync"

// formStep is what the next plain-text message from a user will be used for
type formStep int

const (
	stepNone formStep = iota
	stepAwaitProfile
	stepAwaitFriend
)

// FormState tracks pending two-step commands per user
type FormState struct {
	mu    sync.Mutex
	steps map[int64]formStep
}

func NewFormState() *FormState {
	return &FormState{steps: make(map[int64]formStep)}
}

func (f *FormState) set(userID int64, step formStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[userID] = step
}

// take returns the pending step and clears it
func (f *FormState) take(userID int64) formStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	step := f.steps[userID]
	delete(f.steps, userID)
	return step
}

func (f *FormState) clear(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.steps, userID)
}

func (f *FormState) pending(userID int64) formStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps[userID]
}
