// Package planner computes load-balanced allocation plans. It is a pure
// function of its inputs: no clock, no store, no synchronization, so plans
// for different campaigns can be computed fully in parallel.
package planner

import (
	"container/heap"

	"quorum/internal/campaign/models"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// Plan partitions items into expected-many buckets so that each item is
// scheduled for redundancy-many independent judgements.
//
// The fill is greedy most-needed-first: each bucket takes the items with the
// highest remaining need, ties broken by smallest item ID. An item never
// appears twice in the same bucket (one participant judges an item at most
// once), which is why the selection within a bucket skips items already
// placed there. Needs drain evenly across the plan, and the output is a pure
// deterministic function of the inputs.
func Plan(items []id.ItemID, redundancy, expected int) (*models.AllocationPlan, error) {
	if redundancy < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "redundancy must be at least 1")
	}
	if expected < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "expected participants must be at least 1")
	}
	seen := make(map[id.ItemID]struct{}, len(items))
	for _, itemID := range items {
		if itemID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidParameter, "item ids must be non-nil")
		}
		if _, dup := seen[itemID]; dup {
			return nil, dErrors.New(dErrors.CodeInvalidParameter, "item ids must be distinct")
		}
		seen[itemID] = struct{}{}
	}

	totalSlots := len(items) * redundancy
	capacity := 0
	if totalSlots > 0 {
		capacity = (totalSlots + expected - 1) / expected
	}

	needs := make(needHeap, len(items))
	for i, itemID := range items {
		needs[i] = &itemNeed{id: itemID, need: redundancy}
	}
	heap.Init(&needs)

	buckets := make([]models.Bucket, expected)
	placed := 0
	for b := range buckets {
		bucket := make(models.Bucket, 0, capacity)

		// Items popped for this bucket stay out of the heap until the bucket
		// closes, enforcing at most one occurrence per bucket.
		var drained []*itemNeed
		for len(bucket) < capacity && needs.Len() > 0 {
			top := heap.Pop(&needs).(*itemNeed)
			bucket = append(bucket, top.id)
			top.need--
			placed++
			drained = append(drained, top)
		}
		for _, n := range drained {
			if n.need > 0 {
				heap.Push(&needs, n)
			}
		}
		buckets[b] = bucket
	}

	return &models.AllocationPlan{
		Buckets: buckets,
		Stats: models.PlanStats{
			TotalSlots:       totalSlots,
			BucketCapacity:   capacity,
			CoverageComplete: placed == totalSlots,
		},
	}, nil
}

type itemNeed struct {
	id   id.ItemID
	need int
}

// needHeap orders by remaining need descending, item ID ascending. The
// ordering is total (IDs are distinct), so heap operations are deterministic.
type needHeap []*itemNeed

func (h needHeap) Len() int { return len(h) }

func (h needHeap) Less(i, j int) bool {
	if h[i].need != h[j].need {
		return h[i].need > h[j].need
	}
	return h[i].id.Less(h[j].id)
}

func (h needHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *needHeap) Push(x any) { *h = append(*h, x.(*itemNeed)) }

func (h *needHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
