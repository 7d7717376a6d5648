// Package loader reads initial state documents from disk.
//
// Supported formats, picked by extension:
//
//	.json        encoding/json token stream
//	.yaml .yml   gopkg.in/yaml.v3 node tree
//	.cue         cuelang.org/go; a directory loads its CUE package
//
// Object keys keep the order they have in the source document, so notify
// order and diff order follow the file.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rstate/internal/value"
)

// Error codes, shared with the CLI's JSON output.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeNoFiles      = "E003"
	ErrCodeLoadFailed   = "E004"
	ErrCodeNotFound     = "E005"
	ErrCodeBuildFailed  = "E006"
	ErrCodeUnsupported  = "E008"
	ErrCodeNotContainer = "E009"
	ErrCodeParseFailed  = "E010"
)

// LoadError describes a state document that could not be loaded.
type LoadError struct {
	Code    string
	File    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Load reads the state document at name. The top-level value must be an
// object or a list.
func Load(name string) (value.Value, error) {
	info, err := os.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, File: name, Message: "state file not found"}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, File: name, Message: err.Error()}
	}

	var v value.Value
	if info.IsDir() {
		v, err = LoadCUEDir(name)
	} else {
		v, err = loadFile(name)
	}
	if err != nil {
		return nil, err
	}
	if !value.IsContainer(v) {
		return nil, &LoadError{
			Code:    ErrCodeNotContainer,
			File:    name,
			Message: fmt.Sprintf("top-level value is a %s, want an object or list", v.Kind()),
		}
	}
	return v, nil
}

func loadFile(name string) (value.Value, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: name, Message: err.Error()}
	}

	var v value.Value
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		v, err = value.ParseJSON(data)
	case ".yaml", ".yml":
		v, err = ParseYAML(data)
	case ".cue":
		return ParseCUE(name, data)
	default:
		return nil, &LoadError{
			Code:    ErrCodeUnsupported,
			File:    name,
			Message: fmt.Sprintf("unsupported extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(name)),
		}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, File: name, Message: err.Error()}
	}
	return v, nil
}

// ParseYAML converts a single YAML document. Mapping order is preserved;
// aliases are expanded.
func ParseYAML(data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts an already decoded node, e.g. a yaml.Node field of
// a larger document.
func FromYAMLNode(n *yaml.Node) (value.Value, error) {
	if n == nil || n.Kind == 0 {
		return nil, errors.New("empty document")
	}
	return fromYAML(n, 0)
}

// maxAliasDepth bounds alias expansion so a self-referencing document fails
// instead of recursing forever.
const maxAliasDepth = 64

func fromYAML(n *yaml.Node, aliases int) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null{}, nil
		}
		return fromYAML(n.Content[0], aliases)
	case yaml.AliasNode:
		if aliases >= maxAliasDepth {
			return nil, fmt.Errorf("line %d: alias nesting too deep", n.Line)
		}
		return fromYAML(n.Alias, aliases+1)
	case yaml.MappingNode:
		obj := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			item, err := fromYAML(v, aliases)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k.Value, err)
			}
			if err := obj.Set(k.Value, item); err != nil {
				return nil, err
			}
		}
		return obj, nil
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for i, c := range n.Content {
			item, err := fromYAML(c, aliases)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, item)
		}
		return value.NewList(items...), nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unexpected node kind %d", n.Line, n.Kind)
	}
}

func yamlScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.Float(f), nil
	default:
		// !!str, !!timestamp and custom tags keep their source text.
		return value.String(n.Value), nil
	}
}

// ParseCUE compiles one CUE file. The result must be concrete.
func ParseCUE(name string, data []byte) (value.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, name, "compiling CUE", err)
	}
	return fromCUERoot(name, v)
}

// LoadCUEDir loads the CUE package in dir, unifying all of its files.
func LoadCUEDir(dir string) (value.Value, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: dir, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, File: dir, Message: "no CUE files found"}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(ErrCodeLoadFailed, dir, "loading CUE files", inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, dir, "building CUE value", err)
	}
	return fromCUERoot(dir, v)
}

// FindCUEFiles returns the .cue files directly inside dir, the set a
// load of package "." sees.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func fromCUERoot(name string, v cue.Value) (value.Value, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeBuildFailed, name, "state must be concrete", err)
	}
	out, err := fromCUE(v)
	if err != nil {
		return nil, cueError(ErrCodeParseFailed, name, "converting CUE value", err)
	}
	return out, nil
}

func fromCUE(v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := value.NewObject()
		for iter.Next() {
			item, err := fromCUE(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", iter.Label(), err)
			}
			if err := obj.Set(iter.Label(), item); err != nil {
				return nil, err
			}
		}
		return obj, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var items []value.Value
		for iter.Next() {
			item, err := fromCUE(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", len(items), err)
			}
			items = append(items, item)
		}
		return value.NewList(items...), nil
	case cue.StringKind:
		s, err := v.String()
		return value.String(s), err
	case cue.IntKind:
		i, err := v.Int64()
		return value.Int(i), err
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return value.Float(f), err
	case cue.BoolKind:
		b, err := v.Bool()
		return value.Bool(b), err
	case cue.NullKind:
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("unsupported CUE kind %v", v.Kind())
	}
}

// cueError keeps the first CUE position so the message points at the file.
func cueError(code, file, msg string, err error) *LoadError {
	le := &LoadError{Code: code, File: file, Message: fmt.Sprintf("%s: %v", msg, err)}
	var ce interface{ Position() token.Pos }
	if errors.As(err, &ce) {
		le.Pos = ce.Position()
	}
	return le
}
