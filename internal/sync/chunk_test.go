package sync

import (
	"fmt"
	"testing"

	"github.com/zhiliushi/pantry/internal/remote"
)

func makeOps(collection string, n int) []remote.WriteOp {
	ops := make([]remote.WriteOp, n)
	for i := range ops {
		ops[i] = remote.WriteOp{
			Collection: collection,
			OwnerID:    "owner-1",
			DocID:      fmt.Sprintf("doc-%d", i),
		}
	}
	return ops
}

func TestChunkOpsParentLeadsFirstGroup(t *testing.T) {
	parent := &remote.WriteOp{Collection: remote.CollectionLists, DocID: "list-1"}
	children := makeOps(remote.CollectionListItems, 1200)

	groups := chunkOps(parent, children, remote.MaxBatchOps)

	// 1 parent + 1200 children = 1201 ops in groups of 500.
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	for i, group := range groups {
		if len(group) > remote.MaxBatchOps {
			t.Errorf("group %d has %d ops, exceeds the limit", i, len(group))
		}
	}
	if got := len(groups[0]) + len(groups[1]) + len(groups[2]); got != 1201 {
		t.Errorf("total ops across groups = %d, want 1201", got)
	}
	if groups[0][0].DocID != "list-1" {
		t.Errorf("first op = %s, want the parent list", groups[0][0].DocID)
	}
}

func TestChunkOpsNilParent(t *testing.T) {
	groups := chunkOps(nil, makeOps(remote.CollectionInventory, 500), remote.MaxBatchOps)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0]) != 500 {
		t.Errorf("group size = %d, want 500", len(groups[0]))
	}
}

func TestChunkOpsEmpty(t *testing.T) {
	if groups := chunkOps(nil, nil, remote.MaxBatchOps); groups != nil {
		t.Errorf("expected nil groups for empty input, got %d", len(groups))
	}
}

func TestChunkOpsParentOnly(t *testing.T) {
	parent := &remote.WriteOp{Collection: remote.CollectionLists, DocID: "list-1"}
	groups := chunkOps(parent, nil, remote.MaxBatchOps)
	if len(groups) != 1 || len(groups[0]) != 1 {
		t.Fatalf("expected a single one-op group, got %v", groups)
	}
}
