package vm

import "github.com/pkg/errors"

var ErrNotProvisioned = errors.New("machine is not provisioned")
