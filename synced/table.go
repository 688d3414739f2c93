package synced

// Table is a read-only index over the shared folder table as returned
// by the driver.
type Table struct {
	entries    []Declaration
	byName     map[string]string
	byHostPath map[string]string
}

func NewTable(entries []Declaration) *Table {
	t := &Table{
		entries:    make([]Declaration, len(entries)),
		byName:     make(map[string]string, len(entries)),
		byHostPath: make(map[string]string, len(entries)),
	}

	copy(t.entries, entries)

	for _, e := range entries {
		t.byName[e.Name] = e.HostPath

		// Reverse lookup yields the first name sharing the path.
		if _, ok := t.byHostPath[e.HostPath]; !ok {
			t.byHostPath[e.HostPath] = e.Name
		}
	}

	return t
}

func (t *Table) NameFor(hostPath string) (string, bool) {
	name, ok := t.byHostPath[hostPath]
	return name, ok
}

func (t *Table) HostPathFor(name string) (string, bool) {
	hostPath, ok := t.byName[name]
	return hostPath, ok
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Entries() []Declaration {
	ret := make([]Declaration, len(t.entries))
	copy(ret, t.entries)
	return ret
}
