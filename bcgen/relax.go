package bcgen

import (
	"encoding/binary"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/errz"
	"github.com/deepnoodle-ai/bcgen/op"
)

// shrinkBy is the number of bytes saved by turning a 4-byte jump offset into
// a 1-byte one.
const shrinkBy = 3

// RelaxJumps shrinks every jump whose target is within a signed byte, then
// writes all settled jump and switch offsets. It runs once per function,
// after the last instruction is emitted.
func (fg *FunctionGenerator) RelaxJumps() error {
	if err := fg.module.mutable(); err != nil {
		return err
	}
	if fg.relaxed || fg.complete {
		return errz.Newf(errz.ErrProtocol, errz.ErrAlreadyComplete, "jumps already relaxed")
	}
	if err := fg.checkRelocations(); err != nil {
		return err
	}
	sizeBefore := len(fg.opcodes)
	passes, shrunk := 0, 0
	for changed := true; changed; {
		changed = false
		passes++
		for _, j := range fg.jumps {
			if j.short {
				continue
			}
			if op.Addr8.Fits(fg.labels[j.label] - int64(j.loc)) {
				fg.shrinkJump(j)
				changed = true
				shrunk++
			}
		}
	}
	fg.settle()
	// The stream is rewritten in place from here on, so a failure leaves the
	// function unusable rather than retryable.
	fg.relaxed = true
	if err := fg.rewriteShortJumps(); err != nil {
		fg.relaxErr = err
		return err
	}
	fg.module.log.Debug().
		Int("passes", passes).
		Int("jumps", len(fg.jumps)).
		Int("shrunk", shrunk).
		Int("switches", len(fg.switches)).
		Int("size_before", sizeBefore).
		Int("size_after", len(fg.opcodes)).
		Msg("relaxed jumps")
	return nil
}

// checkRelocations verifies that every jump and switch target is bound and
// that every switch segment lies within the jump table.
func (fg *FunctionGenerator) checkRelocations() error {
	for _, j := range fg.jumps {
		if fg.labels[j.label] == unbound {
			return errz.Newf(errz.ErrInternal, errz.ErrUnboundLabel,
				"jump at offset %d targets unbound label %d", j.loc, j.label)
		}
	}
	for _, s := range fg.switches {
		labels := append([]Label{s.defaultLabel}, s.caseLabels...)
		for _, l := range labels {
			if fg.labels[l] == unbound {
				return errz.Newf(errz.ErrInternal, errz.ErrUnboundLabel,
					"switch at offset %d targets unbound label %d", s.loc, l)
			}
		}
		if uint64(s.segment)+uint64(len(s.caseLabels)) > uint64(len(fg.jumpTable)) {
			return errz.Newf(errz.ErrInternal, errz.ErrJumpTable,
				"switch at offset %d needs entries [%d, %d) of a %d entry jump table",
				s.loc, s.segment, int(s.segment)+len(s.caseLabels), len(fg.jumpTable))
		}
	}
	return nil
}

// shrinkJump converts j to a short jump: the three high offset bytes are
// removed and every offset-bearing datum after the jump moves down.
func (fg *FunctionGenerator) shrinkJump(j *jumpReloc) {
	loc := j.loc
	cut := int(loc) + 2
	fg.opcodes = append(fg.opcodes[:cut], fg.opcodes[cut+shrinkBy:]...)
	j.short = true

	for _, other := range fg.jumps {
		if other.loc > loc {
			other.loc -= shrinkBy
		}
	}
	for _, s := range fg.switches {
		if s.loc > loc {
			s.loc -= shrinkBy
		}
	}
	for i, pos := range fg.labels {
		if pos > int64(loc) {
			fg.labels[i] = pos - shrinkBy
		}
	}
	for i := range fg.debugLocations {
		if fg.debugLocations[i].Address > loc {
			fg.debugLocations[i].Address -= shrinkBy
		}
	}
	for i := range fg.handlers {
		h := &fg.handlers[i]
		if h.Start > loc {
			h.Start -= shrinkBy
		}
		if h.End > loc {
			h.End -= shrinkBy
		}
		if h.Target > loc {
			h.Target -= shrinkBy
		}
	}
}

// settle writes the final offset of every jump and switch and fills in the
// switch segments of the jump table.
func (fg *FunctionGenerator) settle() {
	for _, j := range fg.jumps {
		dist := fg.labels[j.label] - int64(j.loc)
		if j.short {
			fg.opcodes[j.loc+1] = byte(int8(dist))
		} else {
			binary.LittleEndian.PutUint32(fg.opcodes[j.loc+1:], uint32(int32(dist)))
		}
	}
	tableStart := int64(bytecode.JumpTableStart(uint32(len(fg.opcodes))))
	info := op.GetInfo(op.SwitchImm)
	for _, s := range fg.switches {
		loc := int64(s.loc)
		tableRef := tableStart + int64(s.segment)*4 - loc
		bytecode.EncodeOperand(op.UInt32, fg.opcodes[s.loc+uint32(info.OperandOffset(1)):], tableRef)
		bytecode.EncodeOperand(op.Addr32, fg.opcodes[s.loc+uint32(info.OperandOffset(2)):],
			fg.labels[s.defaultLabel]-loc)
		for i, l := range s.caseLabels {
			fg.jumpTable[int(s.segment)+i] = uint32(int32(fg.labels[l] - loc))
		}
	}
}

// rewriteShortJumps replaces the opcode of every shrunk jump with its short
// form.
func (fg *FunctionGenerator) rewriteShortJumps() error {
	for _, j := range fg.jumps {
		if !j.short {
			continue
		}
		code := op.Code(fg.opcodes[j.loc])
		short, ok := op.ShortJump(code)
		if !ok {
			return errz.Newf(errz.ErrInternal, errz.ErrUnknownJumpOpcode,
				"opcode %d at offset %d is not a long jump", code, j.loc)
		}
		fg.opcodes[j.loc] = byte(short)
	}
	return nil
}
