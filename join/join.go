// Package join relates works to the agents that appear in them.
package join

// Work is a film and, once joined, the names of the people who appear in it.
type Work struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	People []string `json:"people"`
}

// Agent is a person and the identifiers of the works they appear in.
type Agent struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Films []string `json:"films"`
}

// Join returns a copy of works with People filled from agents.
//
// Output order matches works; each People list follows agent order. Works
// nobody references get an empty, non-nil list. References to unknown works
// are ignored, and an agent listing the same work twice is counted once.
// Neither input is modified.
func Join(works []Work, agents []Agent) []Work {
	index := make(map[string][]string, len(works))
	for _, w := range works {
		index[w.ID] = nil
	}

	for _, a := range agents {
		seen := make(map[string]struct{}, len(a.Films))
		for _, id := range a.Films {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if names, ok := index[id]; ok {
				index[id] = append(names, a.Name)
			}
		}
	}

	out := make([]Work, len(works))
	for i, w := range works {
		people := make([]string, len(index[w.ID]))
		copy(people, index[w.ID])
		out[i] = Work{ID: w.ID, Title: w.Title, People: people}
	}
	return out
}
