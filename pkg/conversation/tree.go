package conversation

import (
	"errors"
	"fmt"

	"thrx-be/internal/entity"
)

var (
	ErrEmptyMessageId   = errors.New("message id is required")
	ErrDuplicateMessage = errors.New("message id already exists")
	ErrSelfParent       = errors.New("message cannot be its own parent")
	ErrParentCycle      = errors.New("message would close a parent cycle")
	ErrMessageNotFound  = errors.New("message not found")
)

// Tree holds the messages of the loaded chat. Edges are parentId
// back-references only; children, siblings and leaves are derived by scan.
type Tree struct {
	messages []entity.Message
	index    map[string]int
}

// NewTree loads stored messages. Duplicate ids are dropped and any parent
// chain that loops back on itself is cut at the link that closes the loop.
func NewTree(messages []entity.Message) *Tree {
	t := &Tree{}
	t.Reset(messages)
	return t
}

// Reset replaces the whole in-memory state with a copy of messages.
func (t *Tree) Reset(messages []entity.Message) {
	t.messages = make([]entity.Message, 0, len(messages))
	t.index = make(map[string]int, len(messages))

	for _, m := range messages {
		if m.Id == "" {
			continue
		}
		if _, exists := t.index[m.Id]; exists {
			continue
		}
		if m.ParentId == m.Id {
			m.ParentId = ""
		}
		t.index[m.Id] = len(t.messages)
		t.messages = append(t.messages, m)
	}

	t.breakCycles()
}

// breakCycles walks every parent chain once. A chain that reaches a node
// still on the current path is a cycle; the last link is cleared.
func (t *Tree) breakCycles() {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(t.messages))

	for start := range t.messages {
		if state[start] != unvisited {
			continue
		}
		var path []int
		cur := start
		for {
			state[cur] = onPath
			path = append(path, cur)

			parentId := t.messages[cur].ParentId
			if parentId == "" {
				break
			}
			next, ok := t.index[parentId]
			if !ok || state[next] == done {
				break
			}
			if state[next] == onPath {
				t.messages[cur].ParentId = ""
				break
			}
			cur = next
		}
		for _, i := range path {
			state[i] = done
		}
	}
}

// Append adds a new message. Indexing is O(1); the cycle check walks the
// new parent's ancestry. It does not persist anything.
func (t *Tree) Append(m entity.Message) error {
	if m.Id == "" {
		return ErrEmptyMessageId
	}
	if m.ParentId == m.Id {
		return fmt.Errorf("%w: %s", ErrSelfParent, m.Id)
	}
	if _, exists := t.index[m.Id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, m.Id)
	}
	// Loaded messages may already point at m.Id as a parent that was not
	// loaded yet.
	if t.ancestryReaches(m.ParentId, m.Id) {
		return fmt.Errorf("%w: %s", ErrParentCycle, m.Id)
	}
	t.index[m.Id] = len(t.messages)
	t.messages = append(t.messages, m)
	return nil
}

// ancestryReaches reports whether walking parent links up from id meets
// target, either as a loaded message or as a dangling parent id.
func (t *Tree) ancestryReaches(id, target string) bool {
	for steps := 0; id != "" && steps <= len(t.messages); steps++ {
		if id == target {
			return true
		}
		i, ok := t.index[id]
		if !ok {
			return false
		}
		id = t.messages[i].ParentId
	}
	return false
}

func (t *Tree) Len() int {
	return len(t.messages)
}

func (t *Tree) Get(id string) (entity.Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return entity.Message{}, false
	}
	return t.messages[i], true
}

func (t *Tree) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Messages returns a copy in insertion order.
func (t *Tree) Messages() []entity.Message {
	out := make([]entity.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// SetContent overwrites the content of an existing message.
func (t *Tree) SetContent(id, content string) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	t.messages[i].Content = content
	return nil
}

// Trail returns the root-to-target path, target included. The walk stops
// silently at a parent that is not loaded, so the trail then starts at the
// first reachable ancestor.
func (t *Tree) Trail(targetId string) []entity.Message {
	if targetId == "" {
		return []entity.Message{}
	}
	i, ok := t.index[targetId]
	if !ok {
		return []entity.Message{}
	}

	var reversed []entity.Message
	seen := make(map[string]struct{})
	for {
		m := t.messages[i]
		if _, loop := seen[m.Id]; loop {
			break
		}
		seen[m.Id] = struct{}{}
		reversed = append(reversed, m)

		if m.ParentId == "" {
			break
		}
		next, ok := t.index[m.ParentId]
		if !ok {
			break
		}
		i = next
	}

	trail := make([]entity.Message, len(reversed))
	for k, m := range reversed {
		trail[len(reversed)-1-k] = m
	}
	return trail
}

// Leaves returns the messages nobody references as parent, in array order.
func (t *Tree) Leaves() []entity.Message {
	parents := make(map[string]struct{}, len(t.messages))
	for _, m := range t.messages {
		if m.ParentId != "" {
			parents[m.ParentId] = struct{}{}
		}
	}
	var leaves []entity.Message
	for _, m := range t.messages {
		if _, isParent := parents[m.Id]; !isParent {
			leaves = append(leaves, m)
		}
	}
	return leaves
}

// DefaultLeaf picks the newest leaf; equal timestamps go to the message
// inserted last.
func (t *Tree) DefaultLeaf() (entity.Message, bool) {
	return latest(t.Leaves())
}

// LatestLeafUnder returns the newest leaf in the subtree rooted at id
// (id itself when it has no children).
func (t *Tree) LatestLeafUnder(id string) (entity.Message, bool) {
	if !t.Has(id) {
		return entity.Message{}, false
	}
	var leaves []entity.Message
	for _, leaf := range t.Leaves() {
		if t.descendsFrom(leaf.Id, id) {
			leaves = append(leaves, leaf)
		}
	}
	return latest(leaves)
}

func (t *Tree) descendsFrom(id, ancestorId string) bool {
	for _, m := range t.Trail(id) {
		if m.Id == ancestorId {
			return true
		}
	}
	return false
}

func latest(candidates []entity.Message) (entity.Message, bool) {
	if len(candidates) == 0 {
		return entity.Message{}, false
	}
	best := candidates[0]
	for _, m := range candidates[1:] {
		if !m.CreatedAt.Before(best.CreatedAt) {
			best = m
		}
	}
	return best, true
}

// Siblings returns every message sharing the parent of messageId, in array
// order, and the position of messageId among them (-1 when unknown).
func (t *Tree) Siblings(messageId string) ([]entity.Message, int) {
	target, ok := t.Get(messageId)
	if !ok {
		return []entity.Message{}, -1
	}
	siblings := t.Children(target.ParentId)
	current := -1
	for i, m := range siblings {
		if m.Id == messageId {
			current = i
			break
		}
	}
	return siblings, current
}

// Children returns the messages whose parent is parentId. An empty
// parentId returns the roots.
func (t *Tree) Children(parentId string) []entity.Message {
	var children []entity.Message
	for _, m := range t.messages {
		if m.ParentId == parentId {
			children = append(children, m)
		}
	}
	return children
}

// GraphNode and GraphEdge describe the tree for the map view.
type GraphNode struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Preview   string `json:"preview"`
	Depth     int    `json:"depth"`
	IsLeaf    bool   `json:"is_leaf"`
	IsOnTrail bool   `json:"is_on_trail"`
}

type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

const graphPreviewLength = 60

// Graph lays out every loaded message; activeId marks the displayed trail.
func (t *Tree) Graph(activeId string) Graph {
	onTrail := make(map[string]struct{})
	for _, m := range t.Trail(activeId) {
		onTrail[m.Id] = struct{}{}
	}
	leaves := make(map[string]struct{})
	for _, m := range t.Leaves() {
		leaves[m.Id] = struct{}{}
	}

	g := Graph{
		Nodes: make([]GraphNode, 0, len(t.messages)),
		Edges: make([]GraphEdge, 0, len(t.messages)),
	}
	for _, m := range t.messages {
		_, leaf := leaves[m.Id]
		_, trail := onTrail[m.Id]
		g.Nodes = append(g.Nodes, GraphNode{
			Id:        m.Id,
			Role:      m.Role,
			Preview:   preview(m.Content, graphPreviewLength),
			Depth:     len(t.Trail(m.Id)) - 1,
			IsLeaf:    leaf,
			IsOnTrail: trail,
		})
		if m.ParentId != "" && t.Has(m.ParentId) {
			g.Edges = append(g.Edges, GraphEdge{From: m.ParentId, To: m.Id})
		}
	}
	return g
}

func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
