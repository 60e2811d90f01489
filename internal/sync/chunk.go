package sync

import "github.com/zhiliushi/pantry/internal/remote"

// chunkOps splits a parent document plus its children into atomic write
// groups no larger than limit. The parent leads the first group so a
// reader never observes children without their parent; remaining
// children fill successive groups. A nil parent chunks the children
// alone.
func chunkOps(parent *remote.WriteOp, children []remote.WriteOp, limit int) [][]remote.WriteOp {
	ops := make([]remote.WriteOp, 0, len(children)+1)
	if parent != nil {
		ops = append(ops, *parent)
	}
	ops = append(ops, children...)
	if len(ops) == 0 {
		return nil
	}

	groups := make([][]remote.WriteOp, 0, (len(ops)+limit-1)/limit)
	for start := 0; start < len(ops); start += limit {
		end := start + limit
		if end > len(ops) {
			end = len(ops)
		}
		groups = append(groups, ops[start:end])
	}
	return groups
}
