package synced

import "github.com/pkg/errors"

var ErrUnusable = errors.New("shared folders unusable")

var errNilMachine = errors.New("nil machine")
