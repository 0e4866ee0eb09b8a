package payment

// NextPaymentType returns the first installment slot not yet used by existing, or TypeOther
// once the three installments are taken. TypeAdvance is never handed out here.
func NextPaymentType(existing []Payment) Type {
	used := make(map[Type]bool, len(existing))
	for _, p := range existing {
		used[p.PaymentType] = true
	}
	for _, t := range installments {
		if !used[t] {
			return t
		}
	}
	return TypeOther
}

// TotalPaid sums the amounts of payments.
func TotalPaid(payments []Payment) int64 {
	var total int64
	for _, p := range payments {
		total += p.Amount
	}
	return total
}

// RemainingBalance is what is left of fees once existing are paid. It goes negative on overpayment.
func RemainingBalance(fees int64, existing []Payment) int64 {
	return fees - TotalPaid(existing)
}
