package linker

import "github.com/pkg/errors"

// Strength is a symbol's resolution strength, per SPEC_FULL.md §3.
type Strength int8

const (
	StrengthUndefined Strength = iota
	StrengthWeak
	StrengthStrong
)

// Symbol is one entry in the global Symbol Table (SymbolResolution in the
// data model). Local symbols never appear here; they are resolved within
// their owning ObjectFile by index (see ObjectFile.LocalSyms).
type Symbol struct {
	Name     string
	Strength Strength

	File    *ObjectFile   // defining object; nil if undefined
	Section *InputSection // defining section; nil if absolute or undefined
	Value   uint64        // offset within Section, or the absolute value
	Absolute bool

	// Type is the symbol's ELF kind (STT_NOTYPE/STT_FUNC/STT_OBJECT/...),
	// carried from the defining Sym.Type() so the Output Symtab can emit
	// it verbatim instead of flattening every symbol to STT_NOTYPE.
	Type uint8

	// requiresStrongResolution is set once any reference to this name is
	// non-weak; it decides whether an undefined entry is an error or
	// resolves to address zero at Finalize.
	requiresStrongResolution bool

	GotIndex int32 // -1 until the GOT Builder allocates a slot
}

// Address returns the symbol's final virtual address. Section-relative
// symbols must have had their InputSection placed by the Layout Engine
// first.
func (s *Symbol) Address() (uint64, error) {
	if s.Absolute || s.Section == nil {
		return s.Value, nil
	}
	if s.Section.OutputSection == nil {
		return 0, errors.Errorf("symbol %s: owning section %s not laid out", s.Name, s.Section.Name())
	}
	return s.Section.OutputSection.Shdr.Addr + uint64(s.Section.Offset) + s.Value, nil
}

// SymbolTable is the process-wide name -> SymbolResolution map described in
// SPEC_FULL.md §4.3. Iteration is in insertion order to keep emission
// (symtab, link map) deterministic.
type SymbolTable struct {
	order []string
	m     map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{m: make(map[string]*Symbol)}
}

func (t *SymbolTable) get(name string) *Symbol {
	if sym, ok := t.m[name]; ok {
		return sym
	}
	sym := &Symbol{Name: name, GotIndex: -1}
	t.m[name] = sym
	t.order = append(t.order, name)
	return sym
}

// Reference inserts an undefined placeholder if name is not yet known. weak
// distinguishes an STB_WEAK reference (e.g. libc's optional hooks) from a
// normal STB_GLOBAL reference: if every reference to a name that is never
// defined is weak, Finalize resolves it to address zero instead of failing.
func (t *SymbolTable) Reference(name string, weak bool) *Symbol {
	sym := t.get(name)
	if !weak {
		sym.requiresStrongResolution = true
	}
	return sym
}

// Define inserts or upgrades name's definition. Two strong definitions of
// the same name is ErrDuplicateSymbol. A weak definition never overrides an
// existing strong or weak definition ("first wins"). typ is the symbol's
// ELF STT_* kind, used verbatim for .symtab emission.
func (t *SymbolTable) Define(name string, strength Strength, file *ObjectFile, sec *InputSection, value uint64, absolute bool, typ uint8) error {
	if strength == StrengthUndefined {
		return errors.Errorf("Define called with undefined strength for %s", name)
	}

	sym := t.get(name)
	switch strength {
	case StrengthStrong:
		if sym.Strength == StrengthStrong {
			return errors.Wrapf(ErrDuplicateSymbol, "%s: defined strongly in both %s and %s",
				name, displayName(sym.File), displayName(file))
		}
		sym.Strength = StrengthStrong
		sym.File, sym.Section, sym.Value, sym.Absolute, sym.Type = file, sec, value, absolute, typ
	case StrengthWeak:
		if sym.Strength == StrengthUndefined {
			sym.Strength = StrengthWeak
			sym.File, sym.Section, sym.Value, sym.Absolute, sym.Type = file, sec, value, absolute, typ
		}
	}
	return nil
}

// UnresolvedNames returns a snapshot of every name still undefined, for the
// Archive Resolver's fixed-point iteration.
func (t *SymbolTable) UnresolvedNames() []string {
	var names []string
	for _, n := range t.order {
		if t.m[n].Strength == StrengthUndefined {
			names = append(names, n)
		}
	}
	return names
}

// Names returns every known symbol name in stable insertion order.
func (t *SymbolTable) Names() []string {
	return t.order
}

func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.m[name]
	return sym, ok
}

// Finalize applies the resolution policy of SPEC_FULL.md §4.3/§9 to every
// remaining undefined entry: weak-only references resolve to absolute
// address 0, anything else is ErrUnresolvedSymbol.
func (t *SymbolTable) Finalize() error {
	for _, n := range t.order {
		sym := t.m[n]
		if sym.Strength != StrengthUndefined {
			continue
		}
		if sym.requiresStrongResolution {
			return errors.Wrapf(ErrUnresolvedSymbol, "%s", n)
		}
		sym.Absolute = true
		sym.Value = 0
	}
	return nil
}

func displayName(o *ObjectFile) string {
	if o == nil {
		return "<unknown>"
	}
	return o.DisplayName()
}
