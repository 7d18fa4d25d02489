package pricing

import (
	"math"
	"time"

	"cabinbook/internal/domain"
)

// PaymentPlan splits a total into what is collected now and what is due later.
type PaymentPlan struct {
	AmountDueNow float64    `json:"amount_due_now"`
	RemainingDue float64    `json:"remaining_due"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

func (p PaymentPlan) Partial() bool { return p.RemainingDue > 0 }

// FullPayment is the plan used when no advance policy applies.
func FullPayment(total float64) PaymentPlan {
	return PaymentPlan{AmountDueNow: total}
}

// Plan applies an advance policy to total. AmountDueNow + RemainingDue always
// equals total and AmountDueNow never exceeds it.
func Plan(total float64, policy domain.AdvancePolicy, durationType domain.DurationType, start time.Time) PaymentPlan {
	if !policy.AppliesTo(durationType) {
		return FullPayment(total)
	}

	var advance float64
	if policy.UseFlatAmount {
		advance = math.Min(policy.FlatAmount, total)
	} else {
		advance = Round2(total * policy.Percentage / 100)
	}
	advance = math.Min(math.Max(advance, 0), total)

	// A zero advance would leave a hold with nothing to pay for, so it
	// collects the total like a plan with nothing remaining.
	remaining := Round2(total - advance)
	if advance <= 0 || remaining <= 0 {
		return FullPayment(total)
	}

	due := domain.StartOfDay(start).AddDate(0, 0, policy.ValidityDays)
	return PaymentPlan{
		AmountDueNow: advance,
		RemainingDue: remaining,
		DueDate:      &due,
	}
}
