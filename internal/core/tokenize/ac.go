package tokenize

// Aho-Corasick automaton over bytes of the lowercased text.
// A fixed 256-way transition table per node avoids map lookups in the scan loop

type acNode struct {
	// trans[b] = next state or -1 if absent
	trans  [256]int
	fail   int
	output []int // pattern ids ending at this node
}

type acAutomaton struct {
	nodes []acNode
	lens  []int // byte length per pattern id
}

func newNode() acNode {
	var n acNode
	for i := range n.trans {
		n.trans[i] = -1
	}
	return n
}

func newAutomaton() *acAutomaton {
	return &acAutomaton{nodes: []acNode{newNode()}}
}

// add inserts a pattern and returns its id, empty patterns are ignored
func (a *acAutomaton) add(pat []byte) int {
	if len(pat) == 0 {
		return -1
	}
	state := 0
	for _, b := range pat {
		nxt := a.nodes[state].trans[b]
		if nxt == -1 {
			nxt = len(a.nodes)
			a.nodes[state].trans[b] = nxt
			a.nodes = append(a.nodes, newNode())
		}
		state = nxt
	}
	id := len(a.lens)
	a.lens = append(a.lens, len(pat))
	a.nodes[state].output = append(a.nodes[state].output, id)
	return id
}

// build finalizes failure links breadth first
func (a *acAutomaton) build() {
	q := make([]int, 0, 64)
	for b := range 256 {
		if s := a.nodes[0].trans[b]; s != -1 {
			a.nodes[s].fail = 0
			q = append(q, s)
		}
	}

	for qi := 0; qi < len(q); qi++ {
		r := q[qi]
		for b := range 256 {
			s := a.nodes[r].trans[b]
			if s == -1 {
				continue
			}
			q = append(q, s)

			f := a.nodes[r].fail
			for f != 0 && a.nodes[f].trans[b] == -1 {
				f = a.nodes[f].fail
			}
			if nxt := a.nodes[f].trans[b]; nxt != -1 && nxt != s {
				a.nodes[s].fail = nxt
			} else {
				a.nodes[s].fail = 0
			}
			a.nodes[s].output = append(a.nodes[s].output, a.nodes[a.nodes[s].fail].output...)
		}
	}
}

// each calls cb(start, end, id) for every match in text in scan order
func (a *acAutomaton) each(text []byte, cb func(start, end, id int)) {
	state := 0
	for i, b := range text {
		for state != 0 && a.nodes[state].trans[b] == -1 {
			state = a.nodes[state].fail
		}
		if nxt := a.nodes[state].trans[b]; nxt != -1 {
			state = nxt
		}
		for _, id := range a.nodes[state].output {
			end := i + 1
			cb(end-a.lens[id], end, id)
		}
	}
}
