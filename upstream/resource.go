package upstream

import "fmt"

// Resource names one remote collection.
type Resource int

const (
	// Works is the film collection.
	Works Resource = iota
	// Agents is the people collection; each person references the films they appear in.
	Agents
)

// Resources lists every known resource in fetch order.
var Resources = []Resource{Works, Agents}

// String returns the remote collection name.
func (r Resource) String() string {
	switch r {
	case Works:
		return "films"
	case Agents:
		return "people"
	default:
		return "unknown"
	}
}

// Path returns the URL path of the collection, relative to the base URL.
func (r Resource) Path() string {
	return "/" + r.String()
}

// ParseResource maps a collection name back to its Resource.
func ParseResource(s string) (Resource, error) {
	switch s {
	case "films":
		return Works, nil
	case "people":
		return Agents, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownResource, s)
	}
}

// Record is one element of a collection. Works fill Title; agents fill Name
// and Films. Fields the service does not consume are ignored when decoding.
type Record struct {
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
	Name  string   `json:"name,omitempty"`
	Films []string `json:"films,omitempty"`
}

// Collection is the decoded body of one successful fetch.
type Collection []Record

// Clone returns a deep copy of c.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i, rec := range c {
		out[i] = rec
		if rec.Films != nil {
			out[i].Films = append([]string(nil), rec.Films...)
		}
	}
	return out
}
