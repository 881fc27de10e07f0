package mir

import (
	"fmt"
)

// Validate enforces the MIR structural invariants: every block has
// exactly one terminator, every branch target is in range, and every
// instruction destination names a declared local.
func Validate(p *Program) error {
	for i := range p.Functions {
		if err := validateFunc(&p.Functions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateFunc(fn *Func) error {
	localCount := LocalID(len(fn.Locals)) // #nosec G115
	blockCount := BlockID(len(fn.Blocks)) // #nosec G115

	checkOperand := func(op Operand, where string) error {
		if op.Kind == OperandLocal && op.Local >= localCount {
			return fmt.Errorf("function %s: %s uses undeclared local %d", fn.Name, where, op.Local)
		}
		return nil
	}

	for bi := range fn.Blocks {
		block := &fn.Blocks[bi]

		for ii := range block.Instrs {
			instr := &block.Instrs[ii]
			where := fmt.Sprintf("block %s instr %d", block.Label, ii)
			if instr.Kind == InstrAssign && instr.Dst >= localCount {
				return fmt.Errorf("function %s: %s assigns undeclared local %d", fn.Name, where, instr.Dst)
			}
			for _, op := range rvalueOperands(&instr.Rvalue) {
				if err := checkOperand(op, where); err != nil {
					return err
				}
			}
		}

		switch block.Term.Kind {
		case TermNone:
			return fmt.Errorf("function %s: block %s has no terminator", fn.Name, block.Label)
		case TermReturn:
			if block.Term.Value != nil {
				if err := checkOperand(*block.Term.Value, "return"); err != nil {
					return err
				}
			}
		case TermGoto:
			if block.Term.Target >= blockCount {
				return fmt.Errorf("function %s: block %s jumps to missing block %d",
					fn.Name, block.Label, block.Term.Target)
			}
		case TermIf:
			if err := checkOperand(block.Term.Cond, "branch condition"); err != nil {
				return err
			}
			if block.Term.Then >= blockCount || block.Term.Else >= blockCount {
				return fmt.Errorf("function %s: block %s branches to missing block",
					fn.Name, block.Label)
			}
		}
	}
	return nil
}

func rvalueOperands(rv *Rvalue) []Operand {
	switch rv.Kind {
	case RvUse, RvFieldLoad, RvEnumTag, RvEnumPayload:
		return []Operand{rv.Operand}
	case RvBinary:
		return []Operand{rv.Left, rv.Right}
	case RvCall:
		return rv.Args
	case RvRecordNew:
		return rv.Fields
	case RvEnumNew:
		if rv.Payload != nil {
			return []Operand{*rv.Payload}
		}
	}
	return nil
}
