package model

// Category groups tasks by area of life.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryShopping Category = "Shopping"
	CategoryHealth   Category = "Health"
	CategoryOther    Category = "Other"
)

// Categories lists the selectable categories in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryOther}

func (c Category) IsValid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryOther:
		return true
	default:
		return false
	}
}

// OrDefault substitutes Other for an empty category.
func (c Category) OrDefault() Category {
	if c == "" {
		return CategoryOther
	}
	return c
}

// Priority is ordered from Low to Urgent.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) IsValid() bool {
	return p.Order() >= 0
}

// Order returns the sort rank of p (Low=0 ... Urgent=4), or -1 for unknown values.
func (p Priority) Order() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityNormal:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return -1
	}
}

func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityNormal
	}
	return p
}

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

func (s Status) OrDefault() Status {
	if s == "" {
		return StatusPending
	}
	return s
}
