// Package loader assembles a live register map from a memory-map document:
// parse, resolve imports, expand templates, validate, then construct the
// register graph against a caller-supplied bus.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sarchlab/regmap/bus"
	"github.com/sarchlab/regmap/reg"
	"github.com/sarchlab/regmap/schema"
)

// ValidationMode selects how Load treats validator findings.
type ValidationMode int

const (
	// Strict turns any diagnostic into a load error. Import and code
	// generation paths use this.
	Strict ValidationMode = iota

	// Advisory returns diagnostics on the result and keeps going.
	// Interactive editors use this and re-validate after edits. Registers
	// whose construction fails are left out of the map and reported as
	// diagnostics.
	Advisory
)

// ValidationError is the Strict-mode load failure carrying the full
// diagnostic list.
type ValidationError struct {
	Diagnostics []schema.Diagnostic
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	return fmt.Sprintf("memory map validation failed with %d findings:\n  %s",
		len(e.Diagnostics), strings.Join(msgs, "\n  "))
}

// Option configures a Loader.
type Option func(*Loader)

// WithValidationMode selects Strict or Advisory handling of diagnostics.
func WithValidationMode(m ValidationMode) Option {
	return func(l *Loader) {
		l.mode = m
	}
}

// WithImportRoot resolves relative import paths against dir instead of the
// importing document's directory.
func WithImportRoot(dir string) Option {
	return func(l *Loader) {
		l.importRoot = dir
	}
}

// Result is a successful load: the expanded model, the constructed register
// map, and whatever the validator found.
type Result struct {
	Map         *RegisterMap
	Model       *schema.MemoryMap
	Diagnostics []schema.Diagnostic
}

// Loader runs the load pipeline. It caches parsed documents by absolute
// path, so shared memory maps imported from several places parse once.
type Loader struct {
	mode       ValidationMode
	importRoot string
	cache      map[string]*schema.Document
}

// New creates a Loader. The default validation mode is Strict.
func New(opts ...Option) *Loader {
	l := &Loader{
		cache: make(map[string]*schema.Document),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the full pipeline on the document at path and binds the
// constructed registers to b.
func (l *Loader) Load(path string, b bus.Bus) (*Result, error) {
	doc, err := l.parseCached(path)
	if err != nil {
		return nil, err
	}
	merged, err := l.resolveImports(doc, filepath.Dir(path), map[string]bool{})
	if err != nil {
		return nil, err
	}
	return l.LoadDocument(merged, b)
}

// LoadDocument runs expansion, validation and construction on an already
// parsed document. Imports must be resolved; documents straight from
// schema.Parse with a non-empty Imports list are rejected.
func (l *Loader) LoadDocument(doc *schema.Document, b bus.Bus) (*Result, error) {
	if len(doc.Imports) > 0 {
		return nil, fmt.Errorf("document %s has unresolved imports", doc.Name)
	}

	model, err := schema.Expand(doc)
	if err != nil {
		return nil, err
	}

	diags := schema.Validate(model)
	if l.mode == Strict && len(diags) > 0 {
		return nil, &ValidationError{Diagnostics: diags}
	}

	rm, constructionDiags, err := l.construct(model, b)
	if err != nil {
		return nil, err
	}
	diags = append(diags, constructionDiags...)

	return &Result{
		Map:         rm,
		Model:       model,
		Diagnostics: diags,
	}, nil
}

// parseCached parses path at most once per Loader.
func (l *Loader) parseCached(path string) (*schema.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if doc, ok := l.cache[abs]; ok {
		return doc, nil
	}
	doc, err := schema.ParseFile(abs)
	if err != nil {
		return nil, err
	}
	l.cache[abs] = doc
	return doc, nil
}

// resolveImports merges every imported document into a copy of doc:
// imported templates and address blocks come first in import order, the
// document's own entries follow and its templates win on name clashes.
// visiting guards against import cycles.
func (l *Loader) resolveImports(doc *schema.Document, dir string, visiting map[string]bool) (*schema.Document, error) {
	if len(doc.Imports) == 0 {
		return doc, nil
	}

	merged := doc.Clone()
	merged.Imports = nil
	var blocks []schema.BlockDef
	templates := make(map[string][]schema.RegisterDef)

	for _, imp := range doc.Imports {
		path := imp
		if !filepath.IsAbs(path) {
			root := dir
			if l.importRoot != "" {
				root = l.importRoot
			}
			path = filepath.Join(root, imp)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve import %s: %w", imp, err)
		}
		if visiting[abs] {
			return nil, fmt.Errorf("import cycle through %s", abs)
		}

		imported, err := l.parseCached(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", imp, err)
		}
		visiting[abs] = true
		resolved, err := l.resolveImports(imported, filepath.Dir(abs), visiting)
		delete(visiting, abs)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, resolved.AddressBlocks...)
		for name, regs := range resolved.Templates {
			templates[name] = regs
		}
	}

	for name, regs := range merged.Templates {
		templates[name] = regs
	}
	merged.Templates = templates
	merged.AddressBlocks = append(blocks, merged.AddressBlocks...)
	return merged, nil
}

// construct builds the register graph for an expanded model against b.
func (l *Loader) construct(model *schema.MemoryMap, b bus.Bus) (*RegisterMap, []schema.Diagnostic, error) {
	rm := newRegisterMap(model.Name, model.Description)
	var diags []schema.Diagnostic

	for _, blk := range model.Blocks {
		view := newBlockView(blk)
		for _, rd := range blk.Registers {
			r, err := constructRegister(rd, blk, b)
			if err != nil {
				if l.mode == Advisory {
					diags = append(diags, schema.Diagnostic{
						Block:    blk.Name,
						Register: rd.Name,
						Message:  err.Error(),
					})
					continue
				}
				return nil, nil, fmt.Errorf("block %s: %w", blk.Name, err)
			}
			view.addRegister(r)
		}
		for _, ad := range blk.Arrays {
			a, err := constructArray(ad, blk, b)
			if err != nil {
				if l.mode == Advisory {
					diags = append(diags, schema.Diagnostic{
						Block:    blk.Name,
						Register: ad.Name,
						Message:  err.Error(),
					})
					continue
				}
				return nil, nil, fmt.Errorf("block %s: %w", blk.Name, err)
			}
			view.addArray(a)
		}
		rm.addBlock(view)
	}
	return rm, diags, nil
}

func constructRegister(rd schema.RegisterDescriptor, blk schema.Block, b bus.Bus) (*reg.Register, error) {
	fields, err := rd.BitFields()
	if err != nil {
		return nil, err
	}
	opts := []reg.RegisterOption{
		reg.WithRegisterDescription(rd.Description),
	}
	if rd.HasReset {
		opts = append(opts, reg.WithResetSeed(rd.ResetValue))
	}
	if rd.Provenance != nil {
		opts = append(opts, reg.WithProvenance(*rd.Provenance))
	}
	addr := uint32(blk.BaseAddress) + rd.Offset
	return reg.NewRegister(rd.Name, addr, b, fields, opts...)
}

func constructArray(ad schema.ArrayDescriptor, blk schema.Block, b bus.Bus) (*reg.ArrayAccessor, error) {
	fields, err := ad.BitFields()
	if err != nil {
		return nil, err
	}
	base := uint32(blk.BaseAddress) + ad.Base
	return reg.NewArrayAccessor(ad.Name, base, ad.Count, ad.Stride, fields, b, ad.Description)
}
