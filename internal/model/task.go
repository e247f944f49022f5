package model

type Priority string

const (
	PriorityUnset  Priority = ""
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

type Task struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority"`
}

// Draft is the body of a create request: the store assigns the id.
type Draft struct {
	Name      string   `json:"name"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority"`
}

func NewDraft(name string, priority Priority) Draft {
	return Draft{Name: name, Completed: false, Priority: priority}
}

func (d Draft) Task(id string) Task {
	return Task{ID: id, Name: d.Name, Completed: d.Completed, Priority: d.Priority}
}

type PriorityOption struct {
	Value Priority
	Label string
	Color string
}

var priorityOptions = []PriorityOption{
	{Value: PriorityUnset, Label: "Unset", Color: "#6c757d"},
	{Value: PriorityLow, Label: "Low", Color: "#198754"},
	{Value: PriorityMedium, Label: "Medium", Color: "#fd7e14"},
	{Value: PriorityHigh, Label: "High", Color: "#dc3545"},
}

// Priorities returns the selectable priorities in display order.
func Priorities() []PriorityOption {
	out := make([]PriorityOption, len(priorityOptions))
	copy(out, priorityOptions)
	return out
}

func (p Priority) Valid() bool {
	for _, o := range priorityOptions {
		if o.Value == p {
			return true
		}
	}
	return false
}

func (p Priority) Label() string {
	for _, o := range priorityOptions {
		if o.Value == p {
			return o.Label
		}
	}
	return string(p)
}
