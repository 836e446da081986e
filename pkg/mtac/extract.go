package mtac

import "fmt"

// Extract implements spec §6's basic-block-extraction producer interface:
// it splits a flat statement sequence (as emitted by the out-of-scope
// AST->MTAC lowering pass) into basic blocks at labels and jumps, resolves
// every GOTO/IF/IF_FALSE label to its target block, wires ENTRY->first and
// every return block->EXIT, and consumes LABEL statements (they never
// appear inside a block's Stmts afterward).
//
// flat is ordered exactly as the front end emitted it; f must already have
// its ENTRY/EXIT sentinels (see NewFunction) and no blocks yet.
func Extract(f *Function, flat []Statement) {
	if len(f.Blocks) != 0 {
		panic(fmt.Sprintf("mtac: Extract called on function %q that already has blocks", f.Name))
	}

	// Pass 1: partition at labels and immediately after terminators.
	var blocks []*BasicBlock
	var cur *BasicBlock
	startBlock := func(label string) *BasicBlock {
		b := &BasicBlock{Index: BlockIndex(len(blocks)), Label: label}
		blocks = append(blocks, b)
		return b
	}
	cur = startBlock("")
	for _, s := range flat {
		if lbl, ok := s.(Label); ok {
			if len(cur.Stmts) > 0 || cur.Label != "" {
				cur = startBlock(lbl.Name)
			} else {
				cur.Label = lbl.Name
			}
			continue // LABEL statements are consumed, never stored
		}
		cur.Stmts = append(cur.Stmts, s)
		if IsTerminator(s) {
			cur = startBlock("")
		}
	}
	// Drop a possible trailing empty block with no label (produced when the
	// sequence ends in a terminator).
	if len(blocks) > 0 {
		last := blocks[len(blocks)-1]
		if len(last.Stmts) == 0 && last.Label == "" {
			blocks = blocks[:len(blocks)-1]
		}
	}

	labelIndex := make(map[string]*BasicBlock)
	for _, b := range blocks {
		if b.Label != "" {
			labelIndex[b.Label] = b
		}
	}

	// Pass 2: resolve jump targets and wire fallthrough/branch edges.
	for i, b := range blocks {
		var fallthroughTarget *BasicBlock
		if i+1 < len(blocks) {
			fallthroughTarget = blocks[i+1]
		}
		term := b.Terminator()
		switch t := term.(type) {
		case Goto:
			target, ok := labelIndex[t.Label]
			if !ok {
				panic(fmt.Sprintf("mtac: function %q: dangling label %q in GOTO", f.Name, t.Label))
			}
			t.Target = target
			b.Stmts[len(b.Stmts)-1] = t
			b.AddSuccessor(target)
		case If:
			target, ok := labelIndex[t.Label]
			if !ok {
				panic(fmt.Sprintf("mtac: function %q: dangling label %q in IF", f.Name, t.Label))
			}
			t.Target = target
			b.Stmts[len(b.Stmts)-1] = t
			b.AddSuccessor(target)
			if fallthroughTarget == nil {
				panic(fmt.Sprintf("mtac: function %q: conditional branch falls off the end of the function", f.Name))
			}
			b.AddSuccessor(fallthroughTarget)
		case Return:
			f.ExitBlock.Pred = append(f.ExitBlock.Pred, b)
			b.Succ = append(b.Succ, f.ExitBlock)
		default:
			// No terminator (or a non-branching terminator like a bare
			// Quadruple ending the slice): implicit fallthrough.
			if fallthroughTarget != nil {
				b.AddSuccessor(fallthroughTarget)
			} else {
				// Falls off the end of the function with no RETURN: treat
				// as an implicit void return to EXIT.
				f.ExitBlock.Pred = append(f.ExitBlock.Pred, b)
				b.Succ = append(b.Succ, f.ExitBlock)
			}
		}
	}

	f.Blocks = blocks
	if len(blocks) > 0 {
		f.EntryBlock.Succ = []*BasicBlock{blocks[0]}
		blocks[0].Pred = append(blocks[0].Pred, f.EntryBlock)
	} else {
		f.EntryBlock.Succ = []*BasicBlock{f.ExitBlock}
		f.ExitBlock.Pred = []*BasicBlock{f.EntryBlock}
	}
	f.InvalidateCFG()
}
