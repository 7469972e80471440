package cart

type Status string

const (
	StatusOpen       Status = "open"
	StatusCheckedOut Status = "checked_out"
	StatusCompleted  Status = "completed"
	StatusExpired    Status = "expired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusCheckedOut, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
