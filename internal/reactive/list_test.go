package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

type listCase struct {
	name     string
	run      func(l *ListNode) error
	expected []any
}

// listCases applies each bulk operation to [a, b, c] with item as the
// inserted value.
func listCases(original []any, item any) []listCase {
	v := value.MustFromGo(item)
	byOriginalIndexDesc := func(a, b value.Value) int {
		return indexOf(original, b) - indexOf(original, a)
	}
	return []listCase{
		{"copyWithin", func(l *ListNode) error { return l.CopyWithin(2, 0, 1) },
			[]any{original[0], original[1], original[0]}},
		{"sort", func(l *ListNode) error { return l.Sort(byOriginalIndexDesc) },
			[]any{original[2], original[1], original[0]}},
		{"push", func(l *ListNode) error { _, err := l.Push(v); return err },
			[]any{original[0], original[1], original[2], item}},
		{"pop", func(l *ListNode) error { _, err := l.Pop(); return err },
			[]any{original[0], original[1]}},
		{"shift", func(l *ListNode) error { _, err := l.Shift(); return err },
			[]any{original[1], original[2]}},
		{"unshift", func(l *ListNode) error { _, err := l.Unshift(v); return err },
			[]any{item, original[0], original[1], original[2]}},
		{"splice", func(l *ListNode) error { _, err := l.Splice(1, 1, v); return err },
			[]any{original[0], item, original[2]}},
		{"reverse", func(l *ListNode) error { return l.Reverse() },
			[]any{original[2], original[1], original[0]}},
		{"fill", func(l *ListNode) error { return l.Fill(v, 0, 3) },
			[]any{item, item, item}},
		{"insertAt", func(l *ListNode) error { _, err := l.InsertAt(1, v); return err },
			[]any{original[0], item, original[1], original[2]}},
		{"removeAt", func(l *ListNode) error { _, err := l.RemoveAt(0); return err },
			[]any{original[1], original[2]}},
	}
}

// indexOf finds v in original by canonical encoding.
func indexOf(original []any, v value.Value) int {
	want := value.Format(v)
	for i, o := range original {
		if value.Format(value.MustFromGo(o)) == want {
			return i
		}
	}
	return -1
}

func TestList_SimpleArray(t *testing.T) {
	original := []any{int64(1), int64(2), int64(3)}
	for _, tc := range listCases(original, int64(99)) {
		t.Run(tc.name, func(t *testing.T) {
			s := newState(t, map[string]any{"items": []any{1, 2, 3}})
			rec := newRecorder()
			rec.observe(t, s, "items", "items[1]", "items[13408573]")

			l, err := s.List("items")
			require.NoError(t, err)
			require.NoError(t, tc.run(l))

			assert.Equal(t, tc.expected, value.ToGo(rec.value("items")))
			assert.False(t, rec.called("items.13408573"), "a missing index never changes")

			now, err := s.Get("items[1]")
			require.NoError(t, err)
			before := value.MustFromGo(original[1])
			if value.Equal(now, before) {
				assert.False(t, rec.called("items.1"), "unchanged index must not fire")
			} else {
				assert.Equal(t, now, rec.value("items.1"))
			}
		})
	}
}

func TestList_ReverseDiff(t *testing.T) {
	s := newState(t, map[string]any{"items": []any{1, 2, 3}})
	rec := newRecorder()
	rec.observe(t, s, "items", "items[1]")

	l, err := s.List("items")
	require.NoError(t, err)
	require.NoError(t, l.Reverse())

	assert.Equal(t, 1, rec.count("items"))
	assert.Equal(t, []any{int64(3), int64(2), int64(1)}, value.ToGo(rec.value("items")))
	assert.False(t, rec.called("items.1"))
}

func TestList_ObjectArrayFirstElementChanged(t *testing.T) {
	original := []any{
		map[string]any{"a": map[string]any{"g": map[string]any{"c": map[string]any{"d": "123"}}}},
		map[string]any{"a": map[string]any{"b": map[string]any{"f": map[string]any{"m": "678"}}}},
		map[string]any{"e": map[string]any{"b": map[string]any{"5": map[string]any{"m": "678"}}}},
	}
	item := map[string]any{"chg": map[string]any{"value": "123"}}
	firstUnchanged := map[string]bool{"copyWithin": true, "pop": true, "splice": true, "push": true}
	watched := []string{
		"items[0].a.g.c.d",
		"[items][0][a][g][c][d]",
		"items.0.a.g.c",
		"items.0.a.g",
		"items.0.a",
		"items.0",
		"items",
	}

	for _, tc := range listCases(original, item) {
		if firstUnchanged[tc.name] || tc.name == "insertAt" {
			continue
		}
		t.Run(tc.name, func(t *testing.T) {
			s := newState(t, map[string]any{"items": original})
			rec := newRecorder()
			rec.observe(t, s, watched...)

			l, err := s.List("items")
			require.NoError(t, err)
			require.NoError(t, tc.run(l))

			expected := value.MustFromGo(map[string]any{"items": tc.expected})
			for _, spec := range watched {
				p := path.MustParse(spec)
				require.True(t, rec.called(p.String()), "%s was not observed", spec)
				assert.Equal(t,
					value.ToGo(p.Resolve(expected)),
					value.ToGo(rec.value(p.String())),
					"%s was not observed properly", spec)
			}
		})
	}
}

func TestList_Results(t *testing.T) {
	s := newState(t, map[string]any{"items": []any{1, 2, 3}})
	l, err := s.List("items")
	require.NoError(t, err)

	n, err := l.Push(value.Int(4))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	popped, err := l.Pop()
	require.NoError(t, err)
	assert.Equal(t, value.Int(4), popped)

	shifted, err := l.Shift()
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), shifted)

	n, err = l.Unshift(value.Int(0), value.Int(1))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	removed, err := l.Splice(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(2)}, removed)

	n, err = l.InsertAt(1, value.Int(7))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := l.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), got)

	got, err = l.RemoveAt(10)
	require.NoError(t, err)
	assert.Equal(t, value.Absent{}, got)

	assert.Equal(t, []any{int64(0), int64(3)}, value.ToGo(l.Snapshot()))
}

func TestList_CanceledOperationsReturnZero(t *testing.T) {
	s := newState(t, map[string]any{"items": []any{1, 2, 3}})
	rec := newRecorder()
	rec.observe(t, s, "items")

	var methods []string
	_, err := s.OnChange("items", func(c *Change) {
		methods = append(methods, c.Method)
		c.Cancel()
	})
	require.NoError(t, err)

	l, err := s.List("items")
	require.NoError(t, err)

	n, err := l.Push(value.Int(4))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = l.Unshift(value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = l.InsertAt(0, value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	v, err := l.Pop()
	require.NoError(t, err)
	assert.Equal(t, value.Absent{}, v)

	v, err = l.Shift()
	require.NoError(t, err)
	assert.Equal(t, value.Absent{}, v)

	v, err = l.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, value.Absent{}, v)

	removed, err := l.Splice(0, 1)
	require.NoError(t, err)
	assert.Nil(t, removed)

	require.NoError(t, l.Reverse())
	require.NoError(t, l.Sort(nil))
	require.NoError(t, l.Fill(value.Int(0), 0, 3))
	require.NoError(t, l.CopyWithin(0, 1, 2))

	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, value.ToGo(l.Snapshot()))
	assert.Empty(t, rec.order())
	assert.Equal(t, []string{
		"push", "unshift", "insertAt", "pop", "shift", "removeAt",
		"splice", "reverse", "sort", "fill", "copyWithin",
	}, methods)
}

func TestList_CallChangeCarriesArgs(t *testing.T) {
	s := newState(t, map[string]any{"items": []any{1, 2, 3}})
	var got *Change
	_, err := s.OnChange("items", func(c *Change) { got = c })
	require.NoError(t, err)

	l, err := s.List("items")
	require.NoError(t, err)
	_, err = l.Splice(1, 1, value.Int(99))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, OpCall, got.Op)
	assert.Equal(t, "splice", got.Method)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(1), value.Int(99)}, got.Args)
	assert.Same(t, l.Node, got.Old)
}

func TestList_NestedListBubbles(t *testing.T) {
	s := newState(t, map[string]any{"board": map[string]any{"rows": []any{[]any{1, 2}}}})
	rec := newRecorder()
	rec.observe(t, s, "board", "board.rows", "board.rows[0]", "board.rows[0][1]", "")

	row, err := s.List("board.rows[0]")
	require.NoError(t, err)
	_, err = row.Push(value.Int(3))
	require.NoError(t, err)

	assert.Equal(t, []string{"board.rows.0", "board.rows", "board", ""}, rec.order())
	assert.False(t, rec.called("board.rows.0.1"))
}

func TestList_FrozenArgumentRejected(t *testing.T) {
	s := newState(t, map[string]any{"items": []any{}})
	l, err := s.List("items")
	require.NoError(t, err)

	_, err = l.Push(value.NewObject().Freeze())
	assert.True(t, IsFrozenError(err))
	assert.Equal(t, 0, l.Len())
}

func TestList_NotAList(t *testing.T) {
	s := newState(t, map[string]any{"user": map[string]any{}, "n": 1})

	_, err := s.List("user")
	assert.True(t, IsNotListError(err))
	_, err = s.List("n")
	assert.True(t, IsNotListError(err))
	_, err = s.List("missing")
	assert.True(t, IsNotListError(err))

	_, ok := s.Root().AsList()
	assert.False(t, ok)
}

func TestList_WrappedItemsAreUnwrapped(t *testing.T) {
	s := newState(t, map[string]any{"a": map[string]any{"n": 1}, "items": []any{}})
	a := s.Root().Get("a").(*Node)
	l, err := s.List("items")
	require.NoError(t, err)

	_, err = l.Push(a)
	require.NoError(t, err)

	assert.Same(t, a, l.Get("0"), "the same container resolves to the same wrapper")
}
