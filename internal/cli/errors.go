package cli

import (
	"errors"
	"fmt"
)

var (
	errNothingToSet = errors.New("nothing to set; pass at least one field flag")
	errNoCourse     = errors.New("no course selected; pass --course, set CHALK_COURSE, or put `course:` in the config file")
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}
