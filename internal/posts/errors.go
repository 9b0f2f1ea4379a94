package posts

import "errors"

var (
	// ErrAnalysisFailed aborts a request: no post can be written without a profile.
	ErrAnalysisFailed = errors.New("cv analysis failed")
	// ErrIdeasUnavailable marks posts skipped because idea generation failed.
	ErrIdeasUnavailable = errors.New("content ideas unavailable")
	// ErrUnparseable is returned by parsers that found nothing usable.
	ErrUnparseable = errors.New("unparseable model output")
)
