package planning

import (
	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// PlannerNode is one vertex of the plan search: the state predicted after
// applying an action, the action's cost, and the record that executes it.
type PlannerNode struct {
	worldState     *worldstate.WorldState
	cost           float32
	record         ActionRecord
	worldStateHash uint64

	// search bookkeeping
	parent    *PlannerNode
	g, f      float32
	heapIndex int
	closed    bool
}

func (n *PlannerNode) WorldState() *worldstate.WorldState { return n.worldState }
func (n *PlannerNode) Cost() float32                      { return n.cost }
func (n *PlannerNode) Record() ActionRecord               { return n.record }
func (n *PlannerNode) WorldStateHash() uint64             { return n.worldStateHash }

// nodeHeap is a min-heap on f, for container/heap.
type nodeHeap []*PlannerNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].g > h[j].g
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*PlannerNode)
	n.heapIndex = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.heapIndex = -1
	*h = old[:len(old)-1]
	return n
}
