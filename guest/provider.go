// Foldersync - Synced folder reconciliation for QEMU guests.
// Copyright (c) 2023 The Foldersync Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package guest

import (
	"context"
	"log/slog"

	"github.com/AlexSSD7/foldersync/synced"
	"github.com/pkg/errors"
)

var (
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrInvalidArgs        = errors.New("invalid capability arguments")
)

type CapabilityFunc func(ctx context.Context, args ...any) error

// Provider dispatches capability invocations to the functions
// registered for a guest OS family.
type Provider struct {
	logger *slog.Logger

	caps map[synced.Capability]CapabilityFunc
}

var _ synced.Guest = (*Provider)(nil)

func NewProvider(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,

		caps: make(map[synced.Capability]CapabilityFunc),
	}
}

// Register replaces any function previously registered for c.
func (p *Provider) Register(c synced.Capability, fn CapabilityFunc) {
	p.caps[c] = fn
}

func (p *Provider) HasCapability(c synced.Capability) bool {
	_, ok := p.caps[c]
	return ok
}

func (p *Provider) Invoke(ctx context.Context, c synced.Capability, args ...any) error {
	fn, ok := p.caps[c]
	if !ok {
		return errors.Wrapf(ErrCapabilityNotFound, "invoke '%v'", c)
	}

	p.logger.Debug("Invoking guest capability", "capability", c, "args", len(args))

	return fn(ctx, args...)
}

func argAt[T any](args []any, i int) (T, error) {
	var zero T

	if i >= len(args) {
		return zero, errors.Wrapf(ErrInvalidArgs, "missing argument #%v", i)
	}

	v, ok := args[i].(T)
	if !ok {
		return zero, errors.Wrapf(ErrInvalidArgs, "argument #%v has type %T, want %T", i, args[i], zero)
	}

	return v, nil
}
