// Package bcgen assembles bytecode modules.
//
// A ModuleGenerator owns the module-wide tables (functions, strings, regexps,
// filenames, literal buffers and CommonJS records). Each function body is
// built by a FunctionGenerator obtained from the module, which forwards table
// registrations to it so that every function shares the same indices.
//
// # Emission and Branch Relaxation
//
// Jumps are emitted in their long form with a 4-byte offset, because forward
// distances are unknown while a function is being emitted. Jump targets are
// labels; a label is bound to the current end of the stream with Bind.
//
// Once a function body is complete, RelaxJumps settles the stream:
//
//  1. Every long jump whose distance fits in a signed byte is shrunk in
//     place. The three unused offset bytes are removed and everything that
//     records an offset past the jump (other jumps, switches, labels, debug
//     locations and exception handler ranges) moves down by three.
//  2. Step 1 repeats until a full pass shrinks nothing, since each shrink
//     can bring another jump into range.
//  3. Settled offsets are written into every jump and switch, and the
//     switch jump table entries are filled in.
//  4. The opcode of every shrunk jump is rewritten to its short form.
//
// Offsets are always relative to the first byte of the instruction that
// holds them. Switch jump tables are placed after the instructions at the
// next 4-byte boundary.
//
// # Single Use
//
// Generate consumes the ModuleGenerator. Calling Generate again fails. Any
// other mutation of a consumed generator, or of its function generators,
// panics, except for methods that already return an error, which return
// errz.ErrGeneratorConsumed instead.
package bcgen
