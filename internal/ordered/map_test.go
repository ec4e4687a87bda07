package ordered

import "testing"

// keys returns the keys of m in iteration order, for assertions that care
// about order as well as content.
func keys[V any](m *Map[string, V]) []string {
	var ks []string
	m.Range(func(k string, v V) error {
		ks = append(ks, k)
		return nil
	})
	return ks
}

func eqSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMapGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		input  *MapSS
		key    string
		want   string
		wantOk bool
	}{
		{desc: "nil map", input: nil, key: "foo", want: "", wantOk: false},
		{desc: "empty map", input: NewMap[string, string](3), key: "foo", want: "", wantOk: false},
		{desc: "empty map created with new()", input: new(MapSS), key: "foo", want: "", wantOk: false},
		{
			desc:   "present key",
			input:  MapFromItems(TupleSS{Key: "foo", Value: "bar"}),
			key:    "foo",
			want:   "bar",
			wantOk: true,
		},
		{
			desc:   "wrong key",
			input:  MapFromItems(TupleSS{Key: "baz", Value: "bar"}),
			key:    "foo",
			want:   "",
			wantOk: false,
		},
		{
			desc: "larger map",
			input: MapFromItems(
				TupleSS{Key: "", Value: "quz"},
				TupleSS{Key: "foo", Value: "bar"},
				TupleSS{Key: "baz", Value: "qux"},
			),
			key:    "foo",
			want:   "bar",
			wantOk: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()

			got, ok := test.input.Get(test.key)
			if got != test.want || ok != test.wantOk {
				t.Errorf("input.Get(%q) = (%q, %t); want (%q, %t)", test.key, got, ok, test.want, test.wantOk)
			}
		})
	}
}

func TestMapSet(t *testing.T) {
	t.Parallel()

	m := NewMap[string, string](3)
	m.Set("foo", "bar")
	if v, ok := m.Get("foo"); !ok || v != "bar" {
		t.Fatalf("Get(foo) = (%q, %t); want (bar, true)", v, ok)
	}

	// Setting an existing key updates in place without reordering.
	m.Set("baz", "qux")
	m.Set("foo", "changed")

	if v, _ := m.Get("foo"); v != "changed" {
		t.Errorf("Get(foo) after re-Set = %q; want changed", v)
	}
	if want := []string{"foo", "baz"}; !eqSlice(keys(m), want) {
		t.Errorf("keys = %v; want %v", keys(m), want)
	}
}

func TestMapReplace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc       string
		build      func() *MapSS
		oldkey     string
		newkey     string
		value      string
		wantKeys   []string
		wantValAt  string
		wantValFor string
	}{
		{
			desc:       "old = new",
			build:      func() *MapSS { return MapFromItems(TupleSS{Key: "foo", Value: "bar"}) },
			oldkey:     "foo",
			newkey:     "foo",
			value:      "qux",
			wantKeys:   []string{"foo"},
			wantValFor: "foo",
			wantValAt:  "qux",
		},
		{
			desc: "old != new",
			build: func() *MapSS {
				return MapFromItems(
					TupleSS{Key: "baz", Value: "qux"},
					TupleSS{Key: "foo", Value: "bar"},
				)
			},
			oldkey:     "baz",
			newkey:     "biz",
			value:      "tux",
			wantKeys:   []string{"biz", "foo"},
			wantValFor: "biz",
			wantValAt:  "tux",
		},
		{
			desc: "old != new and new already exists",
			build: func() *MapSS {
				return MapFromItems(
					TupleSS{Key: "baz", Value: "qux"},
					TupleSS{Key: "foo", Value: "bar"},
				)
			},
			oldkey:     "baz",
			newkey:     "foo",
			value:      "tux",
			wantKeys:   []string{"foo"},
			wantValFor: "foo",
			wantValAt:  "tux",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()

			m := test.build()
			m.Replace(test.oldkey, test.newkey, test.value)

			if !eqSlice(keys(m), test.wantKeys) {
				t.Errorf("keys = %v; want %v", keys(m), test.wantKeys)
			}
			if v, ok := m.Get(test.wantValFor); !ok || v != test.wantValAt {
				t.Errorf("Get(%q) = (%q, %t); want (%q, true)", test.wantValFor, v, ok, test.wantValAt)
			}
		})
	}
}

func TestMapDelete(t *testing.T) {
	t.Parallel()

	m := MapFromItems(
		TupleSS{Key: "baz", Value: "bar"},
		TupleSS{Key: "foo", Value: "bar"},
	)
	m.Delete("baz")

	if want := []string{"foo"}; !eqSlice(keys(m), want) {
		t.Errorf("keys = %v; want %v", keys(m), want)
	}
	if m.Contains("baz") {
		t.Errorf("Contains(baz) = true after delete")
	}

	// Deleting from a nil or empty map is a no-op, not a panic.
	var nilMap *MapSS
	nilMap.Delete("foo")

	empty := NewMap[string, string](0)
	empty.Delete("foo")
	if empty.Len() != 0 {
		t.Errorf("Len() = %d after deleting from empty map; want 0", empty.Len())
	}
}

func TestMapCompactAfterManyDeletes(t *testing.T) {
	t.Parallel()

	m := NewMap[string, int](0)
	for i := 0; i < 10; i++ {
		m.Set(string(rune('a'+i)), i)
	}
	for i := 0; i < 8; i++ {
		m.Delete(string(rune('a' + i)))
	}

	if m.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", m.Len())
	}
	if want := []string{"i", "j"}; !eqSlice(keys(m), want) {
		t.Errorf("keys after compaction = %v; want %v", keys(m), want)
	}
}

func TestToMap(t *testing.T) {
	t.Parallel()

	m := MapFromItems(
		TupleSS{Key: "foo", Value: "bar"},
		TupleSS{Key: "baz", Value: "qux"},
	)

	got := m.ToMap()
	want := map[string]string{"foo": "bar", "baz": "qux"}

	if len(got) != len(want) {
		t.Fatalf("ToMap() = %v; want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ToMap()[%q] = %q; want %q", k, got[k], v)
		}
	}
}

func TestMapRangeStopsOnError(t *testing.T) {
	t.Parallel()

	m := MapFromItems(
		TupleSS{Key: "a", Value: "1"},
		TupleSS{Key: "b", Value: "2"},
		TupleSS{Key: "c", Value: "3"},
	)

	var seen []string
	sentinel := &struct{ error }{}
	err := m.Range(func(k, v string) error {
		seen = append(seen, k)
		if k == "b" {
			return sentinel
		}
		return nil
	})

	if err != sentinel {
		t.Fatalf("Range() error = %v; want sentinel", err)
	}
	if want := []string{"a", "b"}; !eqSlice(seen, want) {
		t.Errorf("visited = %v; want %v", seen, want)
	}
}
