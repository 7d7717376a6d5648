package harness

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/roach88/rstate/internal/reactive"
	"github.com/roach88/rstate/internal/value"
)

// Argument shapes of the list methods, decoded from a step's args map.

type noArgs struct{}

type itemsArgs struct {
	Items []any `mapstructure:"items"`
}

type spliceArgs struct {
	Start       int   `mapstructure:"start"`
	DeleteCount int   `mapstructure:"delete_count"`
	Items       []any `mapstructure:"items"`
}

type insertArgs struct {
	Index int `mapstructure:"index"`
	Item  any `mapstructure:"item"`
}

type removeArgs struct {
	Index int `mapstructure:"index"`
}

type sortArgs struct {
	Order string `mapstructure:"order"` // "asc" (default) or "desc"
}

type fillArgs struct {
	Value any  `mapstructure:"value"`
	Start int  `mapstructure:"start"`
	End   *int `mapstructure:"end"` // defaults to the list length
}

type copyWithinArgs struct {
	Target int  `mapstructure:"target"`
	Start  int  `mapstructure:"start"`
	End    *int `mapstructure:"end"`
}

type listMethod struct {
	args func() any
	call func(l *reactive.ListNode, args any) error
}

var listMethods = map[string]listMethod{
	"push": {
		args: func() any { return &itemsArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			items, err := fromGoAll(a.(*itemsArgs).Items)
			if err != nil {
				return err
			}
			_, err = l.Push(items...)
			return err
		},
	},
	"pop": {
		args: func() any { return &noArgs{} },
		call: func(l *reactive.ListNode, _ any) error {
			_, err := l.Pop()
			return err
		},
	},
	"shift": {
		args: func() any { return &noArgs{} },
		call: func(l *reactive.ListNode, _ any) error {
			_, err := l.Shift()
			return err
		},
	},
	"unshift": {
		args: func() any { return &itemsArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			items, err := fromGoAll(a.(*itemsArgs).Items)
			if err != nil {
				return err
			}
			_, err = l.Unshift(items...)
			return err
		},
	},
	"splice": {
		args: func() any { return &spliceArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			args := a.(*spliceArgs)
			items, err := fromGoAll(args.Items)
			if err != nil {
				return err
			}
			_, err = l.Splice(args.Start, args.DeleteCount, items...)
			return err
		},
	},
	"insertAt": {
		args: func() any { return &insertArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			args := a.(*insertArgs)
			item, err := value.FromGo(args.Item)
			if err != nil {
				return err
			}
			_, err = l.InsertAt(args.Index, item)
			return err
		},
	},
	"removeAt": {
		args: func() any { return &removeArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			_, err := l.RemoveAt(a.(*removeArgs).Index)
			return err
		},
	},
	"reverse": {
		args: func() any { return &noArgs{} },
		call: func(l *reactive.ListNode, _ any) error {
			return l.Reverse()
		},
	},
	"sort": {
		args: func() any { return &sortArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			switch a.(*sortArgs).Order {
			case "", "asc":
				return l.Sort(value.Compare)
			case "desc":
				return l.Sort(func(x, y value.Value) int { return value.Compare(y, x) })
			default:
				return fmt.Errorf("sort order %q: want asc or desc", a.(*sortArgs).Order)
			}
		},
	},
	"fill": {
		args: func() any { return &fillArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			args := a.(*fillArgs)
			v, err := value.FromGo(args.Value)
			if err != nil {
				return err
			}
			return l.Fill(v, args.Start, endOr(args.End, l.Len()))
		},
	},
	"copyWithin": {
		args: func() any { return &copyWithinArgs{} },
		call: func(l *reactive.ListNode, a any) error {
			args := a.(*copyWithinArgs)
			return l.CopyWithin(args.Target, args.Start, endOr(args.End, l.Len()))
		},
	},
}

// decodeArgs fills out from a step's args map. Unknown keys are errors.
func decodeArgs(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func fromGoAll(items []any) ([]value.Value, error) {
	out := make([]value.Value, len(items))
	for i, item := range items {
		v, err := value.FromGo(item)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func endOr(end *int, n int) int {
	if end == nil {
		return n
	}
	return *end
}
