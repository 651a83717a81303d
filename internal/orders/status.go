package orders

type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
)

var validNext = map[Status]map[Status]bool{
	StatusDraft:    {StatusPending: true, StatusCanceled: true},
	StatusPending:  {StatusPaid: true, StatusCanceled: true},
	StatusPaid:     {},
	StatusCanceled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
