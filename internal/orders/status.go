package orders

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusDeleted Status = "DELETED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusPaid: true, StatusDeleted: true},
	StatusPaid:    {},
	StatusDeleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Listable reports whether s may filter an order listing. Deleted orders
// are never listed, so DELETED is not a filter value.
func (s Status) Listable() bool {
	return s == StatusPending || s == StatusPaid
}

// PrepStatus tracks kitchen preparation of a line, independently of payment.
type PrepStatus string

const (
	PrepPreparing PrepStatus = "PREPARING"
	PrepReady     PrepStatus = "READY"
)
