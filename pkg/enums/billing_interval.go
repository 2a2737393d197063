package enums

import "fmt"

// BillingInterval is the recurrence of a plan, or the prepaid duration for the
// one-time Pix rail.
type BillingInterval string

const (
	IntervalMonth      BillingInterval = "month"
	IntervalSemiannual BillingInterval = "semiannual"
	IntervalYear       BillingInterval = "year"
)

var validBillingIntervals = []BillingInterval{
	IntervalMonth,
	IntervalSemiannual,
	IntervalYear,
}

func (i BillingInterval) String() string {
	return string(i)
}

func (i BillingInterval) IsValid() bool {
	for _, candidate := range validBillingIntervals {
		if candidate == i {
			return true
		}
	}
	return false
}

// Months returns the calendar-month span the interval covers.
func (i BillingInterval) Months() int {
	switch i {
	case IntervalSemiannual:
		return 6
	case IntervalYear:
		return 12
	default:
		return 1
	}
}

// ParseBillingInterval converts raw input into a BillingInterval.
func ParseBillingInterval(value string) (BillingInterval, error) {
	for _, candidate := range validBillingIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing interval %q", value)
}
