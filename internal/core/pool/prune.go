package pool

import "go.uber.org/zap"

// PruneUsed drops used-list entries whose slot is no longer allocated and
// reclaims waiting slots that lost their termination request. It does
// nothing during a sweep. Returns the number of repairs.
func (p *Pool[T]) PruneUsed() int {
	if p.depth > 0 {
		return 0
	}
	repairs := 0
	for i := 0; i < p.used.Len(); {
		idx := p.used.At(i)
		e := &p.ents[idx]
		switch {
		case !e.allocated || e.state == StateTerminated:
			e.allocated, e.on = false, false
			e.state = StateTerminated
			p.removeUsed(idx)
			p.pushFree(idx)
			p.touch(idx)
			repairs++
			continue // the swap moved a new entry into position i
		case e.killMe || e.state == StateWaiting:
			p.release(idx)
			repairs++
			continue
		}
		if !e.inUsedList || e.inFreeList {
			e.inUsedList, e.inFreeList = true, false
			repairs++
		}
		i++
	}
	p.report("used", repairs)
	return repairs
}

// PruneFree moves allocated slots out of the free list and files slots that
// are in neither list. It does nothing during a sweep.
func (p *Pool[T]) PruneFree() int {
	if p.depth > 0 {
		return 0
	}
	repairs := 0
	for i := 0; i < p.free.Len(); {
		idx := p.free.At(i)
		e := &p.ents[idx]
		if e.allocated {
			p.removeFree(idx)
			p.pushUsed(idx)
			p.touch(idx)
			repairs++
			continue
		}
		if !e.inFreeList || e.inUsedList {
			e.inFreeList, e.inUsedList = true, false
			repairs++
		}
		i++
	}
	for i := range p.ents {
		idx := Index(i)
		e := &p.ents[i]
		if p.free.Contains(idx) || p.used.Contains(idx) {
			continue
		}
		if e.allocated {
			p.pushUsed(idx)
		} else {
			e.state = StateTerminated
			p.pushFree(idx)
		}
		p.touch(idx)
		repairs++
	}
	p.report("free", repairs)
	return repairs
}

func (p *Pool[T]) report(list string, repairs int) {
	if repairs == 0 {
		return
	}
	p.stats.Repairs += uint64(repairs)
	p.log.Warn("pool lists repaired", zap.String("list", list), zap.Int("repairs", repairs))
}
