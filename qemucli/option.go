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

package qemucli

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
)

// Only the flags needed to expose shared folders may be rendered.
var knownFlags = map[string]struct{}{
	"fsdev":  {},
	"device": {},
}

// Prop is one item of QEMU's comma-separated property list. An empty
// Value renders the bare name, like the "local" in "-fsdev local,id=fsdev0".
type Prop struct {
	Name  string
	Value string
}

// Option is a single "-flag props" pair of a QEMU command line.
type Option struct {
	flag  string
	props []Prop
}

func NewOption(flag string, props ...Prop) (Option, error) {
	if _, ok := knownFlags[flag]; !ok {
		return Option{}, fmt.Errorf("flag '-%v' is not allowed", flag)
	}

	if len(props) == 0 {
		return Option{}, fmt.Errorf("no properties for '-%v'", flag)
	}

	o := Option{
		flag:  flag,
		props: make([]Prop, 0, len(props)),
	}

	for _, p := range props {
		if p.Name == "" {
			return Option{}, fmt.Errorf("property with empty name for '-%v'", flag)
		}

		err := CheckPropValue(p.Name)
		if err != nil {
			return Option{}, errors.Wrapf(err, "check property name '%v'", p.Name)
		}

		err = CheckPropValue(p.Value)
		if err != nil {
			return Option{}, errors.Wrapf(err, "check value of property '%v'", p.Name)
		}

		o.props = append(o.props, p)
	}

	return o, nil
}

func (o Option) Flag() string {
	return "-" + o.flag
}

func (o Option) Props() string {
	items := make([]string, len(o.props))
	for i, p := range o.props {
		items[i] = p.Name
		if p.Value != "" {
			items[i] += "=" + p.Value
		}
	}

	return strings.Join(items, ",")
}

// Argv renders the options as tokens ready to be pasted into a shell.
func Argv(opts []Option) ([]string, error) {
	argv := make([]string, 0, len(opts)*2)

	for i, o := range opts {
		if o.flag == "" {
			return nil, fmt.Errorf("option #%v was not created with NewOption", i)
		}

		argv = append(argv, o.Flag(), shellescape.Quote(o.Props()))
	}

	return argv, nil
}
