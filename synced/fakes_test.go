package synced

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDriver struct {
	table []Declaration

	shareCalls   [][]Declaration
	unshareCalls [][]string
	clearCalls   int

	shareErr   error
	readErr    error
	unshareErr error
	clearErr   error

	// Applied to names on share, to simulate a hypervisor that
	// renames folders on its own.
	rename func(string) string
}

func (d *fakeDriver) ShareFolders(_ context.Context, decls []Declaration) error {
	cp := make([]Declaration, len(decls))
	copy(cp, decls)
	d.shareCalls = append(d.shareCalls, cp)

	if d.shareErr != nil {
		return d.shareErr
	}

	for _, decl := range decls {
		if d.rename != nil {
			decl.Name = d.rename(decl.Name)
		}

		replaced := false
		for i := range d.table {
			if d.table[i].Name == decl.Name {
				d.table[i].HostPath = decl.HostPath
				replaced = true
			}
		}

		if !replaced {
			d.table = append(d.table, decl)
		}
	}

	return nil
}

func (d *fakeDriver) ReadSharedFolders(context.Context) ([]Declaration, error) {
	if d.readErr != nil {
		return nil, d.readErr
	}

	ret := make([]Declaration, len(d.table))
	copy(ret, d.table)
	return ret, nil
}

func (d *fakeDriver) UnshareFolders(_ context.Context, names []string) error {
	d.unshareCalls = append(d.unshareCalls, names)

	if d.unshareErr != nil {
		return d.unshareErr
	}

	remove := make(map[string]bool)
	for _, n := range names {
		remove[n] = true
	}

	var kept []Declaration
	for _, e := range d.table {
		if !remove[e.Name] {
			kept = append(kept, e)
		}
	}
	d.table = kept

	return nil
}

func (d *fakeDriver) ClearSharedFolders(context.Context) error {
	d.clearCalls++

	if d.clearErr != nil {
		return d.clearErr
	}

	d.table = nil
	return nil
}

type guestCall struct {
	Cap  Capability
	Args []any
}

type fakeGuest struct {
	caps  map[Capability]bool
	calls []guestCall

	fail func(c guestCall) error
}

func newFakeGuest(caps ...Capability) *fakeGuest {
	g := &fakeGuest{caps: make(map[Capability]bool)}
	for _, c := range caps {
		g.caps[c] = true
	}

	return g
}

func (g *fakeGuest) HasCapability(c Capability) bool {
	return g.caps[c]
}

func (g *fakeGuest) Invoke(_ context.Context, c Capability, args ...any) error {
	call := guestCall{Cap: c, Args: args}
	g.calls = append(g.calls, call)

	if g.fail != nil {
		return g.fail(call)
	}

	return nil
}

func (g *fakeGuest) callsOf(c Capability) []guestCall {
	var ret []guestCall
	for _, call := range g.calls {
		if call.Cap == c {
			ret = append(ret, call)
		}
	}

	return ret
}

type fakeUI struct {
	output []string
	detail []string
}

func (u *fakeUI) Output(msg string) { u.output = append(u.output, msg) }
func (u *fakeUI) Detail(msg string) { u.detail = append(u.detail, msg) }

type prefixTranslator struct {
	prefix string
}

func (t prefixTranslator) Translate(p string) (string, error) {
	if strings.HasPrefix(p, "!") {
		return "", io.ErrUnexpectedEOF
	}

	return t.prefix + p, nil
}

func newTestMachine(guest *fakeGuest) (*Machine, *fakeUI) {
	ui := &fakeUI{}

	return &Machine{
		Name:           "default",
		ID:             "8d4b0d0e-7c2f-4d0b-9d6f-3f4c1c1f6a10",
		ProviderName:   "qemu",
		ProviderConfig: ProviderConfig{FunctionalSharedFolders: true},
		SSHInfo:        SSHInfo{Username: "alpine"},
		Guest:          guest,
		UI:             ui,
	}, ui
}

func newTestCoordinator(d *fakeDriver, tr PathTranslator) *Coordinator {
	return NewCoordinator(testLogger(), func(*Machine) Driver { return d }, tr)
}
