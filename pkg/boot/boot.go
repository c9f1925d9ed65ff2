// Package boot loads the bootstrap data a desk session is set up from:
// the doctypes the user may read, the doctype layouts, single doctypes
// and workspaces.
package boot

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/registry"
)

// Data is the boot document.
type Data struct {
	// CanRead lists the doctypes the user may read.
	CanRead []string `json:"can_read" yaml:"can_read"`

	// Singles lists single doctypes, whose only document shares their name.
	Singles []string `json:"singles,omitempty" yaml:"singles,omitempty"`

	// DoctypeLayouts are alternate slugs for doctypes.
	DoctypeLayouts []registry.Layout `json:"doctype_layouts,omitempty" yaml:"doctype_layouts,omitempty"`

	// Workspaces lists workspace names.
	Workspaces []string `json:"workspaces,omitempty" yaml:"workspaces,omitempty"`
}

// Registry builds the slug registry described by d.
func (d *Data) Registry() *registry.Registry {
	if d == nil {
		return registry.Empty()
	}
	return registry.Build(d.CanRead, d.DoctypeLayouts,
		registry.WithSingles(d.Singles...),
		registry.WithWorkspaces(d.Workspaces...),
	)
}

// Validate checks that every name is set.
func (d *Data) Validate() error {
	for i, name := range d.CanRead {
		if strings.TrimSpace(name) == "" {
			return errors.New(errors.CodeBootMalformed).
				WithDetail("can_read[" + strconv.Itoa(i) + "] is empty")
		}
	}
	for i, l := range d.DoctypeLayouts {
		if l.Name == "" || l.DocumentType == "" {
			return errors.New(errors.CodeBootMalformed).
				WithDetail("doctype_layouts[" + strconv.Itoa(i) + "] needs both name and document_type").
				WithExample(`{"name": "Quick ToDo", "document_type": "ToDo"}`)
		}
	}
	return nil
}

// Decode reads a boot document. The name's extension selects the format
// (.json, .yaml, .yml); any other name is sniffed from the content.
func Decode(name string, r io.Reader) (*Data, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(errors.CodeBootUnreadable).Wrap(err)
	}

	var d Data
	if isJSON(name, src) {
		err = decodeJSON(name, src, &d)
	} else {
		err = decodeYAML(name, src, &d)
	}
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func isJSON(name string, src []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return true
	case ".yaml", ".yml":
		return false
	}
	return bytes.HasPrefix(bytes.TrimSpace(src), []byte("{"))
}

func decodeJSON(name string, src []byte, d *Data) error {
	err := json.Unmarshal(src, d)
	if err == nil {
		return nil
	}

	e := errors.New(errors.CodeBootMalformed).Wrap(err)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		line, col := position(src, syntaxErr.Offset)
		e.WithSource(name, src, line, col)
	case stderrors.As(err, &typeErr):
		line, col := position(src, typeErr.Offset)
		e.WithSource(name, src, line, col).
			WithSuggestion(typeErr.Field + " must be " + typeErr.Type.String())
	}
	return e
}

// yamlLine finds the line number in yaml.v3 error messages.
var yamlLine = regexp.MustCompile(`line (\d+)`)

func decodeYAML(name string, src []byte, d *Data) error {
	err := yaml.Unmarshal(src, d)
	if err == nil {
		return nil
	}

	e := errors.New(errors.CodeBootMalformed).Wrap(err)
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		e.WithSource(name, src, line, 0)
	}
	return e
}

// position converts a byte offset into a 1-based line and column.
func position(src []byte, offset int64) (line, col int) {
	if offset > int64(len(src)) {
		offset = int64(len(src))
	}
	before := src[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - bytes.LastIndexByte(before, '\n')
	return line, col
}

// Load fetches and decodes the boot document from src.
func Load(ctx context.Context, src Source) (*Data, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, errors.FromError(err, errors.CodeBootUnreadable)
	}
	return Decode(src.Name(), bytes.NewReader(data))
}
