package domain

import "errors"

var (
	// ErrDataLoad is returned when the question data could not be fetched or read.
	ErrDataLoad = errors.New("question data could not be loaded")
	// ErrPoolEmpty indicates the loaded pool has no usable questions.
	ErrPoolEmpty = errors.New("question pool is empty")
	// ErrSessionNotFound is returned when a quiz session has not been opened.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotInProgress is returned for question operations outside the question loop.
	ErrNotInProgress = errors.New("quiz session is not in progress")
	// ErrNotFinished is returned when a result is requested before the session ends.
	ErrNotFinished = errors.New("quiz session has not finished")
	// ErrOptionNotFound indicates a selected tag is not an option of the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNoSelection is returned when confirming without a selected option.
	ErrNoSelection = errors.New("no option selected")
)
