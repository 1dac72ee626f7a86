package bcgen

import (
	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/errz"
	"github.com/deepnoodle-ai/bcgen/internal/alloc"
	"github.com/deepnoodle-ai/bcgen/internal/uniq"
	"github.com/deepnoodle-ai/bcgen/literal"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// NoEntryPoint is the entry point index of a module with no designated
// global function.
const NoEntryPoint = bytecode.NoEntryPoint

// StrippedFunctionName replaces every function name when names are stripped.
const StrippedFunctionName = "function-name-stripped"

// ModuleGenerator aggregates the functions and shared tables of a module.
// It is consumed by Generate.
type ModuleGenerator struct {
	cfg *config
	log zerolog.Logger

	functions  alloc.Table[Function]
	generators map[uint32]*FunctionGenerator

	strings   *uniq.StringTable
	regexps   *uniq.RegExpTable
	filenames *uniq.StringTable
	literals  *literal.Serializer

	cjsModules       []bytecode.CJSModule
	cjsModulesStatic []uint32

	entryPoint int
	consumed   bool
}

// New returns a new ModuleGenerator configured with the given options.
func New(opts ...Option) *ModuleGenerator {
	cfg := newConfig(opts)
	m := &ModuleGenerator{
		cfg:        cfg,
		log:        cfg.logger.With().Str("component", "bcgen").Logger(),
		generators: map[uint32]*FunctionGenerator{},
		strings:    uniq.NewStringTable(),
		regexps:    uniq.NewRegExpTable(),
		filenames:  uniq.NewStringTable(),
		entryPoint: NoEntryPoint,
	}
	m.literals = literal.NewSerializer(m, cfg.optimize)
	return m
}

// NewFunctionGenerator returns a builder for one function body of this
// module.
func (m *ModuleGenerator) NewFunctionGenerator(frameSize uint32) *FunctionGenerator {
	m.checkMutable()
	return &FunctionGenerator{module: m, frameSize: frameSize}
}

// AddFunction returns the ID of f, allocating the next one if f has not
// been seen before.
func (m *ModuleGenerator) AddFunction(f Function) uint32 {
	m.checkMutable()
	return m.functions.Allocate(f)
}

// FunctionCount returns the number of functions registered so far.
func (m *ModuleGenerator) FunctionCount() int {
	return m.functions.Len()
}

// SetFunctionGenerator associates fg with f, registering f if needed. The
// module takes ownership of fg.
func (m *ModuleGenerator) SetFunctionGenerator(f Function, fg *FunctionGenerator) {
	m.checkMutable()
	if fg.module != m {
		panic("bcgen: function generator belongs to another module")
	}
	m.generators[m.functions.Allocate(f)] = fg
}

// AddString registers s in the string table and returns its index.
func (m *ModuleGenerator) AddString(s string, isIdentifier bool) uint32 {
	m.checkMutable()
	return m.strings.Add(s, isIdentifier)
}

// AddRegExp registers re in the regexp table and returns its index.
func (m *ModuleGenerator) AddRegExp(re bytecode.RegExp) uint32 {
	m.checkMutable()
	return m.regexps.Add(re)
}

// AddFilename registers name in the filename table and returns its index.
func (m *ModuleGenerator) AddFilename(name string) uint32 {
	m.checkMutable()
	return m.filenames.Add(name, false)
}

// InitializeStringsFromStorage seeds the empty string table from previously
// packed storage so that string indices stay stable across builds.
func (m *ModuleGenerator) InitializeStringsFromStorage(s *bytecode.StringStorage) error {
	if err := m.mutable(); err != nil {
		return err
	}
	return m.strings.InitializeFromStorage(s)
}

// AddCJSModule records a CommonJS module resolved by name.
func (m *ModuleGenerator) AddCJSModule(nameID, functionID uint32) {
	m.checkMutable()
	m.cjsModules = append(m.cjsModules, bytecode.CJSModule{NameID: nameID, FunctionID: functionID})
}

// AddCJSModuleStatic records a CommonJS module resolved by ordinal. Modules
// must be added in ordinal order, starting at the configured offset.
func (m *ModuleGenerator) AddCJSModuleStatic(ordinal, functionID uint32) error {
	if err := m.mutable(); err != nil {
		return err
	}
	want := uint64(m.cfg.cjsModuleOffset) + uint64(len(m.cjsModulesStatic))
	if uint64(ordinal) != want {
		return errz.Newf(errz.ErrInternal, errz.ErrCJSModuleOrdinal,
			"static CommonJS module ordinal %d, expected %d", ordinal, want)
	}
	m.cjsModulesStatic = append(m.cjsModulesStatic, functionID)
	return nil
}

// AddArrayBuffer serializes an array literal and returns its offset in the
// array buffer.
func (m *ModuleGenerator) AddArrayBuffer(elems []literal.Value) uint32 {
	m.checkMutable()
	return m.literals.AddArrayBuffer(elems)
}

// AddObjectBuffer serializes an object literal and returns the offsets of
// its keys and values in their buffers.
func (m *ModuleGenerator) AddObjectBuffer(keys, vals []literal.Value) (keyOffset, valOffset uint32) {
	m.checkMutable()
	return m.literals.AddObjectBuffer(keys, vals)
}

// SetEntryPointIndex sets the ID of the module's global function.
func (m *ModuleGenerator) SetEntryPointIndex(index int) {
	m.checkMutable()
	m.entryPoint = index
}

// EntryPointIndex returns the ID of the global function, or NoEntryPoint.
func (m *ModuleGenerator) EntryPointIndex() int {
	return m.entryPoint
}

// Generate assembles the module. Every registered function must have a
// generator. The ModuleGenerator is consumed, whether or not generation
// succeeds.
func (m *ModuleGenerator) Generate() (*bytecode.Module, error) {
	if m.consumed {
		return nil, errz.New(errz.ErrProtocol, errz.ErrGeneratorConsumed)
	}
	m.consumed = true

	var result *multierror.Error
	functions := m.functions.Elements()
	records := make([]*bytecode.Function, len(functions))
	for i, f := range functions {
		id := uint32(i)
		fg, ok := m.generators[id]
		if !ok {
			result = multierror.Append(result, errz.Newf(errz.ErrInternal, errz.ErrMissingFunctionGenerator,
				"function %d (%q) has no generator", id, f.Name()))
			continue
		}
		fn, err := fg.GenerateBytecodeFunction(
			f.DefinitionKind(), f.StrictMode(), f.ParamCount(), f.EnvironmentSize(), m.functionNameID(f))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		result = multierror.Append(result, validateHandlers(id, fn)...)
		records[i] = fn
	}
	if m.entryPoint != NoEntryPoint && (m.entryPoint < 0 || m.entryPoint >= len(functions)) {
		result = multierror.Append(result, errz.Newf(errz.ErrInternal, errz.ErrEntryPoint,
			"entry point %d outside of %d functions", m.entryPoint, len(functions)))
	}
	if err := result.ErrorOrNil(); err != nil {
		m.log.Debug().Err(err).Msg("module generation failed")
		return nil, err
	}

	params := bytecode.ModuleParams{
		Functions:         records,
		EntryPoint:        m.entryPoint,
		Strings:           m.strings.Pack(m.cfg.optimize),
		RegExps:           m.regexps.Pack(),
		Filenames:         m.filenames.Pack(m.cfg.optimize),
		CJSModules:        m.cjsModules,
		CJSModulesStatic:  m.cjsModulesStatic,
		CJSModuleOffset:   m.cfg.cjsModuleOffset,
		ArrayBuffer:       m.literals.ArrayBuffer(),
		ObjectKeyBuffer:   m.literals.ObjectKeyBuffer(),
		ObjectValueBuffer: m.literals.ObjectValueBuffer(),
	}
	params.ID = moduleID(&params)
	module := bytecode.NewModule(params)

	stats := module.Stats()
	m.log.Debug().
		Str("id", params.ID.String()).
		Int("functions", stats.FunctionCount).
		Int("strings", stats.StringCount).
		Int("string_bytes", stats.StringBytes).
		Int("regexps", stats.RegExpCount).
		Int("literal_bytes", stats.LiteralBytes).
		Int("instruction_bytes", stats.InstructionSize).
		Msg("generated module")
	return module, nil
}

// functionNameID registers the name of f and returns its string ID.
// Anonymous functions use DefaultNameID.
func (m *ModuleGenerator) functionNameID(f Function) uint32 {
	name := f.Name()
	if name == "" {
		return DefaultNameID
	}
	if m.cfg.stripFunctionNames {
		name = StrippedFunctionName
	}
	return m.strings.Add(name, false)
}

// mutable returns an error if the generator has been consumed.
func (m *ModuleGenerator) mutable() error {
	if m.consumed {
		return errz.New(errz.ErrProtocol, errz.ErrGeneratorConsumed)
	}
	return nil
}

// checkMutable panics if the generator has been consumed.
func (m *ModuleGenerator) checkMutable() {
	if err := m.mutable(); err != nil {
		panic(err)
	}
}
