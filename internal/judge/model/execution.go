package model

import (
	"strings"

	appErr "codejudge/pkg/errors"
)

// Mode selects which test cases run and whether a full pass is recorded.
type Mode string

const (
	ModeRun    Mode = "RUN"
	ModeSubmit Mode = "SUBMIT"
)

// ParseMode normalizes a mode tag. An empty tag means RUN.
func ParseMode(tag string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(tag))) {
	case "", ModeRun:
		return ModeRun, nil
	case ModeSubmit:
		return ModeSubmit, nil
	default:
		return "", appErr.New(appErr.UnknownMode).WithDetail("mode", tag)
	}
}
